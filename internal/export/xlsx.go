package export

import (
	"AssiScan/internal/model"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet - имя листа с записями.
const Sheet = "Records"

var columns = []struct {
	header string
	width  float64
	value  func(r *model.Record) any
}{
	{"ID", 8, func(r *model.Record) any { return r.ID }},
	{"Name", 28, func(r *model.Record) any { return r.Name }},
	{"Birthdate", 12, func(r *model.Record) any { return r.Birthdate }},
	{"Sex", 8, func(r *model.Record) any { return r.Sex }},
	{"Place of Birth", 30, func(r *model.Record) any { return r.Birthplace }},
	{"Birth Order", 10, func(r *model.Record) any { return r.BirthOrder }},
	{"Religion", 16, func(r *model.Record) any { return r.Religion }},
	{"Age", 6, func(r *model.Record) any { return r.Age }},
	{"Mother Name", 28, func(r *model.Record) any { return r.MotherName }},
	{"Mother Citizenship", 16, func(r *model.Record) any { return r.MotherCitizenship }},
	{"Mother Occupation", 18, func(r *model.Record) any { return r.MotherOccupation }},
	{"Father Name", 28, func(r *model.Record) any { return r.FatherName }},
	{"Father Citizenship", 16, func(r *model.Record) any { return r.FatherCitizenship }},
	{"Father Occupation", 18, func(r *model.Record) any { return r.FatherOccupation }},
	{"LRN", 16, func(r *model.Record) any { return r.LRN }},
	{"School", 30, func(r *model.Record) any { return r.SchoolName }},
	{"School Address", 30, func(r *model.Record) any { return r.SchoolAddress }},
	{"General Average", 10, func(r *model.Record) any { return r.FinalGeneralAverage }},
	{"PSA", 40, func(r *model.Record) any { return deref(r.ImagePath) }},
	{"Form 137", 40, func(r *model.Record) any { return deref(r.Form137Path) }},
	{"Form 138", 40, func(r *model.Record) any { return deref(r.Form138Path) }},
	{"Good Moral", 40, func(r *model.Record) any { return deref(r.GoodMoralPath) }},
	{"Created At", 20, func(r *model.Record) any { return r.CreatedAt.UTC().Format("2006-01-02 15:04:05") }},
}

// RecordsXLSX строит книгу с одной строкой на запись в переданном порядке.
func RecordsXLSX(records []model.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// В новой книге лист по умолчанию "Sheet1", переименовываем его
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, c := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(Sheet, cell, c.header); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(Sheet, col, col, c.width)
	}

	for i := range records {
		row := i + 2
		for j, c := range columns {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(Sheet, cell, c.value(&records[i])); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
