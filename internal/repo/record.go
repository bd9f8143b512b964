package repo

import (
	"AssiScan/internal/model"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// RecordRepository - контракт хранилища записей.
type RecordRepository interface {
	// InsertIfNew вставляет запись, если её естественный ключ свободен.
	// Возвращает ErrDuplicate без записи в БД, если ключ занят.
	InsertIfNew(ctx context.Context, rec *model.Record) (int64, error)

	// BindAttachment перезаписывает ссылку в слоте записи.
	BindAttachment(ctx context.Context, id int64, slot model.Slot, ref string) error

	// ListAll возвращает все записи, новые первыми.
	ListAll(ctx context.Context) ([]model.Record, error)

	// GetByID возвращает запись по id.
	GetByID(ctx context.Context, id int64) (*model.Record, error)

	// Delete удаляет строку. Файлы вложений не трогает.
	Delete(ctx context.Context, id int64) error
}

type recordRepo struct {
	db *gorm.DB
}

// NewRecordRepository создаёт gorm-реализацию RecordRepository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepo{db: db}
}

func (r *recordRepo) InsertIfNew(ctx context.Context, rec *model.Record) (int64, error) {
	if rec.NameKey == "" {
		rec.NameKey = model.NameKey(rec.Name)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Предпроверка - только ранний выход; гарантию даёт уникальный индекс.
		var n int64
		if err := tx.Model(&model.Record{}).
			Where("name_key = ? AND birthdate = ?", rec.NameKey, rec.Birthdate).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		return tx.Create(rec).Error
	})
	switch {
	case err == nil:
		return rec.ID, nil
	case errors.Is(err, ErrDuplicate), isUniqueViolation(err):
		rec.ID = 0
		return 0, ErrDuplicate
	default:
		return 0, fmt.Errorf("%w: insert record: %w", ErrStore, err)
	}
}

func (r *recordRepo) BindAttachment(ctx context.Context, id int64, slot model.Slot, ref string) error {
	if !slot.Valid() {
		return model.ErrInvalidSlot
	}
	res := r.db.WithContext(ctx).
		Model(&model.Record{}).
		Where("id = ?", id).
		Update(slot.Column(), ref)
	if res.Error != nil {
		return fmt.Errorf("%w: bind %s: %w", ErrStore, slot, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepo) ListAll(ctx context.Context) ([]model.Record, error) {
	var out []model.Record
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list records: %w", ErrStore, err)
	}
	return out, nil
}

func (r *recordRepo) GetByID(ctx context.Context, id int64) (*model.Record, error) {
	var rec model.Record
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get record: %w", ErrStore, err)
	}
	return &rec, nil
}

func (r *recordRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Record{})
	if res.Error != nil {
		return fmt.Errorf("%w: delete record: %w", ErrStore, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
