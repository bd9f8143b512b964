package repo

import (
	"AssiScan/internal/model"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRecord(name, birthdate string) *model.Record {
	img := "PSA_abc_1714000000_scan.png"
	rec := model.NewRecord(model.Fields{
		Name:              name,
		Sex:               "Male",
		Birthdate:         birthdate,
		PlaceOfBirth:      "Quezon City",
		MotherName:        "Maria Santos",
		MotherCitizenship: "Filipino",
		MotherOccupation:  "Nurse",
		FatherName:        "Pedro Dela Cruz",
		FatherCitizenship: "Filipino",
		FatherOccupation:  "Driver",
	}, model.SchoolFields{})
	rec.ImagePath = &img
	return rec
}

func TestRecordRepository_InsertIfNew_Duplicate(t *testing.T) {
	db := newTestDB(t)
	r := NewRecordRepository(db)
	ctx := context.Background()

	id, err := r.InsertIfNew(ctx, mkRecord("Juan Dela Cruz", "2001-05-04"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	list, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// тот же ключ в другом регистре - дубликат, без записи
	id2, err := r.InsertIfNew(ctx, mkRecord("JUAN DELA CRUZ", "2001-05-04"))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Zero(t, id2)

	list, err = r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// другая дата рождения - это другой человек
	_, err = r.InsertIfNew(ctx, mkRecord("Juan Dela Cruz", "2002-05-04"))
	assert.NoError(t, err)
}

// Одновременные вставки одного ключа: ровно одна проходит, остальные получают ErrDuplicate.
func TestRecordRepository_InsertIfNew_Concurrent(t *testing.T) {
	const workers = 16
	db := newFileTestDB(t, 4)
	r := NewRecordRepository(db)
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			name := "Juan Dela Cruz"
			if i%2 == 1 {
				name = "juan dela cruz"
			}
			_, errs[i] = r.InsertIfNew(ctx, mkRecord(name, "2001-05-04"))
		}(i)
	}
	close(start)
	wg.Wait()

	var created, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicate):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, dup)

	list, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// Уникальный индекс срабатывает и без предпроверки (гонка check-then-insert).
func TestRecordRepository_UniqueIndexIsSourceOfTruth(t *testing.T) {
	db := newTestDB(t)
	r := NewRecordRepository(db)
	ctx := context.Background()

	_, err := r.InsertIfNew(ctx, mkRecord("Ana Reyes", "1999-01-01"))
	require.NoError(t, err)

	err = db.WithContext(ctx).Create(mkRecord("ana reyes", "1999-01-01")).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err), "unexpected error: %v", err)
}

func TestRecordRepository_ListAll_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	r := NewRecordRepository(db)
	ctx := context.Background()

	for _, n := range []string{"A One", "B Two", "C Three"} {
		_, err := r.InsertIfNew(ctx, mkRecord(n, "2000-01-01"))
		require.NoError(t, err)
	}
	list, err := r.ListAll(ctx)
	require.NoError(t, err)
	if assert.Len(t, list, 3) {
		assert.Equal(t, "C Three", list[0].Name)
		assert.Equal(t, "A One", list[2].Name)
		assert.False(t, list[0].CreatedAt.IsZero())
	}
}

func TestRecordRepository_BindAttachment(t *testing.T) {
	db := newTestDB(t)
	r := NewRecordRepository(db)
	ctx := context.Background()

	id, err := r.InsertIfNew(ctx, mkRecord("Juan Dela Cruz", "2001-05-04"))
	require.NoError(t, err)

	// повторная привязка к тому же слоту - последняя побеждает
	require.NoError(t, r.BindAttachment(ctx, id, model.SlotForm137, "form137_1_1_a.png"))
	require.NoError(t, r.BindAttachment(ctx, id, model.SlotForm137, "form137_1_2_b.png"))
	require.NoError(t, r.BindAttachment(ctx, id, model.SlotGoodMoral, "goodmoral_1_3_c.png"))

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Form137Path)
	assert.Equal(t, "form137_1_2_b.png", *got.Form137Path)
	assert.Equal(t, "goodmoral_1_3_c.png", *got.GoodMoralPath)
	assert.Nil(t, got.Form138Path)

	list, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// несуществующая запись и недопустимый слот
	assert.ErrorIs(t, r.BindAttachment(ctx, 9999, model.SlotForm137, "x.png"), ErrNotFound)
	assert.ErrorIs(t, r.BindAttachment(ctx, id, model.Slot("diploma"), "x.png"), model.ErrInvalidSlot)
}

func TestRecordRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	r := NewRecordRepository(db)
	ctx := context.Background()

	assert.ErrorIs(t, r.Delete(ctx, 12345), ErrNotFound)

	id, err := r.InsertIfNew(ctx, mkRecord("Juan Dela Cruz", "2001-05-04"))
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, id))

	_, err = r.GetByID(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	// после удаления ключ снова свободен
	_, err = r.InsertIfNew(ctx, mkRecord("Juan Dela Cruz", "2001-05-04"))
	assert.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: records.name_key, records.birthdate (2067)")))
}

func TestRecordRepository_StoreFailure(t *testing.T) {
	db := newTestDB(t)
	r := NewRecordRepository(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = r.InsertIfNew(context.Background(), mkRecord("X Y", "2000-01-01"))
	assert.ErrorIs(t, err, ErrStore)
	_, err = r.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrStore)
}
