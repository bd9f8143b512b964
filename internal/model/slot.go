package model

import (
	"errors"
	"strings"
)

// ErrInvalidSlot - имя слота вне фиксированного набора.
var ErrInvalidSlot = errors.New("invalid attachment slot")

// Slot - именованный слот вложения записи.
type Slot string

const (
	SlotPrimary   Slot = "primary"
	SlotForm137   Slot = "form137"
	SlotForm138   Slot = "form138"
	SlotGoodMoral Slot = "goodmoral"
)

// Slots - фиксированный набор слотов в порядке отображения.
var Slots = []Slot{SlotPrimary, SlotForm137, SlotForm138, SlotGoodMoral}

var slotAliases = map[string]Slot{
	"primary":                SlotPrimary,
	"primary-document":       SlotPrimary,
	"psa":                    SlotPrimary,
	"form137":                SlotForm137,
	"form-137":               SlotForm137,
	"form138":                SlotForm138,
	"form-138":               SlotForm138,
	"goodmoral":              SlotGoodMoral,
	"good-moral":             SlotGoodMoral,
	"good-moral-certificate": SlotGoodMoral,
}

// ParseSlot разбирает тег типа документа (регистр не важен).
func ParseSlot(s string) (Slot, error) {
	if slot, ok := slotAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return slot, nil
	}
	return "", ErrInvalidSlot
}

// Column - колонка таблицы records для слота.
func (s Slot) Column() string {
	switch s {
	case SlotPrimary:
		return "image_path"
	case SlotForm137:
		return "form137_path"
	case SlotForm138:
		return "form138_path"
	case SlotGoodMoral:
		return "goodmoral_path"
	}
	return ""
}

// Tag - префикс имени файла в хранилище.
func (s Slot) Tag() string {
	if s == SlotPrimary {
		return "PSA"
	}
	return string(s)
}

// Valid сообщает, входит ли слот в фиксированный набор.
func (s Slot) Valid() bool {
	return s.Column() != ""
}
