package model

import (
	"strings"
	"time"
)

// Fields - поля свидетельства о рождении, как их возвращает сервис распознавания.
// Все поля опциональны: ответ сервиса недоверенный.
type Fields struct {
	Name              string `json:"Name,omitempty"`
	Sex               string `json:"Sex,omitempty"`
	Birthdate         string `json:"Birthdate,omitempty"`
	PlaceOfBirth      string `json:"PlaceOfBirth,omitempty"`
	BirthOrder        string `json:"BirthOrder,omitempty"`
	Religion          string `json:"Religion,omitempty"`
	MotherName        string `json:"Mother_MaidenName,omitempty"`
	MotherCitizenship string `json:"Mother_Citizenship,omitempty"`
	MotherOccupation  string `json:"Mother_Occupation,omitempty"`
	FatherName        string `json:"Father_Name,omitempty"`
	FatherCitizenship string `json:"Father_Citizenship,omitempty"`
	FatherOccupation  string `json:"Father_Occupation,omitempty"`
}

// SchoolFields - поля Form 137 (SF10).
type SchoolFields struct {
	LRN                 string `json:"lrn,omitempty"`
	SchoolName          string `json:"school_name,omitempty"`
	SchoolAddress       string `json:"school_address,omitempty"`
	FinalGeneralAverage string `json:"final_general_average,omitempty"`
}

var birthdateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"January 02, 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// NormalizeBirthdate приводит дату к YYYY-MM-DD, если её удаётся разобрать.
// Нераспознанное значение возвращается как есть (обрезанным).
func NormalizeBirthdate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return ""
	}
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// NameKey - нормализованное имя для естественного ключа.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewRecord собирает запись из распознанных полей.
func NewRecord(f Fields, school SchoolFields) *Record {
	name := strings.TrimSpace(f.Name)
	return &Record{
		Name:                name,
		NameKey:             NameKey(name),
		Birthdate:           NormalizeBirthdate(f.Birthdate),
		Sex:                 strings.TrimSpace(f.Sex),
		Birthplace:          strings.TrimSpace(f.PlaceOfBirth),
		BirthOrder:          strings.TrimSpace(f.BirthOrder),
		Religion:            strings.TrimSpace(f.Religion),
		MotherName:          strings.TrimSpace(f.MotherName),
		MotherCitizenship:   strings.TrimSpace(f.MotherCitizenship),
		MotherOccupation:    strings.TrimSpace(f.MotherOccupation),
		FatherName:          strings.TrimSpace(f.FatherName),
		FatherCitizenship:   strings.TrimSpace(f.FatherCitizenship),
		FatherOccupation:    strings.TrimSpace(f.FatherOccupation),
		LRN:                 strings.TrimSpace(school.LRN),
		SchoolName:          strings.TrimSpace(school.SchoolName),
		SchoolAddress:       strings.TrimSpace(school.SchoolAddress),
		FinalGeneralAverage: strings.TrimSpace(school.FinalGeneralAverage),
	}
}
