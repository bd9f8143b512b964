package model

import "time"

// Record - серверная модель записи о человеке (свидетельство о рождении + школьные документы).
type Record struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Естественный ключ: (lower(name), birthdate). NameKey хранит нормализованное имя,
	// уникальный индекс по паре держит сама БД.
	Name      string `gorm:"size:255;not null" json:"name"`
	NameKey   string `gorm:"size:255;not null;uniqueIndex:idx_records_natural_key,priority:1" json:"-"`
	Birthdate string `gorm:"size:32;not null;uniqueIndex:idx_records_natural_key,priority:2" json:"birthdate"`

	Sex        string `gorm:"size:50" json:"sex"`
	Birthplace string `gorm:"type:text" json:"birthplace"`
	BirthOrder string `gorm:"size:50" json:"birth_order"`
	Religion   string `gorm:"size:100" json:"religion"`
	// Возраст вводит оператор при сохранении, сервис распознавания его не возвращает
	Age string `gorm:"size:20" json:"age"`

	MotherName        string `gorm:"size:255" json:"mother_name"`
	MotherCitizenship string `gorm:"size:100" json:"mother_citizenship"`
	MotherOccupation  string `gorm:"size:100" json:"mother_occupation"`
	FatherName        string `gorm:"size:255" json:"father_name"`
	FatherCitizenship string `gorm:"size:100" json:"father_citizenship"`
	FatherOccupation  string `gorm:"size:100" json:"father_occupation"`

	// Form 137 / школа
	LRN                 string `gorm:"column:lrn;size:50" json:"lrn"`
	SchoolName          string `gorm:"type:text" json:"school_name"`
	SchoolAddress       string `gorm:"type:text" json:"school_address"`
	FinalGeneralAverage string `gorm:"size:50" json:"final_general_average"`

	// Слоты вложений: nil - файла нет
	ImagePath     *string `gorm:"column:image_path;type:text" json:"image_path"`
	Form137Path   *string `gorm:"column:form137_path;type:text" json:"form137_path"`
	Form138Path   *string `gorm:"column:form138_path;type:text" json:"form138_path"`
	GoodMoralPath *string `gorm:"column:goodmoral_path;type:text" json:"goodmoral_path"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName фиксирует имя таблицы.
func (Record) TableName() string {
	return "records"
}

// SlotRef возвращает ссылку на файл в указанном слоте.
func (r *Record) SlotRef(s Slot) *string {
	switch s {
	case SlotPrimary:
		return r.ImagePath
	case SlotForm137:
		return r.Form137Path
	case SlotForm138:
		return r.Form138Path
	case SlotGoodMoral:
		return r.GoodMoralPath
	}
	return nil
}

// Attachments возвращает все заполненные ссылки в порядке слотов.
func (r *Record) Attachments() []string {
	out := make([]string, 0, len(Slots))
	for _, s := range Slots {
		if ref := r.SlotRef(s); ref != nil && *ref != "" {
			out = append(out, *ref)
		}
	}
	return out
}
