package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var birthCertificateKeys = []string{
	"Name", "Sex", "Birthdate", "PlaceOfBirth", "BirthOrder", "Religion",
	"Mother_MaidenName", "Mother_Citizenship", "Mother_Occupation",
	"Father_Name", "Father_Citizenship", "Father_Occupation",
	"rejection_reason",
}

var form137Keys = []string{"lrn", "school_name", "school_address", "final_general_average"}

var (
	birthCertificateSchema = mustCompileSchema("birth_certificate.json", objectSchema(birthCertificateKeys, map[string]any{
		"is_valid_document": map[string]any{"type": []string{"boolean", "null"}},
	}))
	form137Schema = mustCompileSchema("form137.json", objectSchema(form137Keys, nil))
)

// objectSchema: объект, все перечисленные поля необязательные строки (или null).
func objectSchema(stringKeys []string, extra map[string]any) map[string]any {
	props := make(map[string]any, len(stringKeys)+len(extra))
	for _, k := range stringKeys {
		props[k] = map[string]any{"type": []string{"string", "null"}}
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
	}
}

func mustCompileSchema(name string, schema map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	s, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return s
}

// cleanReply снимает code fences и вырезает JSON-объект из окружающего текста.
func cleanReply(text string) (string, error) {
	s := strings.ReplaceAll(text, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}
	return s[start : end+1], nil
}

// parseReply: очистка, нормализация типов, проверка по схеме.
// Результат - канонический JSON, готовый к json.Unmarshal в фиксированную структуру.
func parseReply(text string, schema *jsonschema.Schema, stringKeys []string) ([]byte, error) {
	raw, err := cleanReply(text)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: reply is not an object", ErrMalformedResponse)
	}
	normalize(obj, stringKeys)

	if err := schema.Validate(obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// normalize приводит числа и bool в строковых полях к строкам, а строку "null" к отсутствию.
// Модель иногда отдаёт BirthOrder числом или "false" строкой.
func normalize(obj map[string]any, stringKeys []string) {
	for _, k := range stringKeys {
		switch val := obj[k].(type) {
		case float64:
			obj[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			obj[k] = strconv.FormatBool(val)
		case string:
			s := strings.TrimSpace(val)
			if strings.EqualFold(s, "null") {
				delete(obj, k)
				continue
			}
			obj[k] = s
		}
	}
	if s, ok := obj["is_valid_document"].(string); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			obj["is_valid_document"] = b
		}
	}
}
