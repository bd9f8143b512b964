package service

import (
	"AssiScan/internal/export"
	"AssiScan/internal/extract"
	"AssiScan/internal/metrics"
	"AssiScan/internal/model"
	"AssiScan/internal/notify"
	"AssiScan/internal/repo"
	"AssiScan/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBadInput - запрос не содержит обязательных данных.
var ErrBadInput = errors.New("bad input")

// Extractor - шлюз распознавания документов.
type Extractor interface {
	ExtractBirthCertificate(ctx context.Context, up extract.Upload) (*extract.BirthCertificate, error)
	ExtractForm137(ctx context.Context, up extract.Upload) (*extract.Form137, error)
}

// Notifier - диспетчер уведомлений.
type Notifier interface {
	Notify(ctx context.Context, recipient, subjectName string, refs []string) notify.Outcome
}

// SaveRequest - подтверждённые пользователем поля записи.
type SaveRequest struct {
	Fields      model.Fields
	School      model.SchoolFields
	ImagePath   string
	Form137Path string
	Age         string
	Email       string
}

// SaveResult - итог сохранения. Дубликат - штатный исход, а не ошибка.
type SaveResult struct {
	ID           int64
	State        State
	Trace        []State
	Notification notify.Outcome
}

// EmailFailed - запись сохранена, но письмо не ушло.
func (r *SaveResult) EmailFailed() bool {
	return r.State == StateNotifyFailed
}

// BindResult - итог привязки вложения.
type BindResult struct {
	State BindState
	Slot  model.Slot
	Ref   string
}

// RecordService - конвейер: распознавание, сохранение с проверкой дубликата,
// привязка вложений и уведомление.
type RecordService struct {
	extractor Extractor
	records   repo.RecordRepository
	files     storage.FileStorage
	notifier  Notifier
	metrics   *metrics.Pipeline
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewRecordService создаёт сервис записей. metrics может быть nil.
func NewRecordService(
	extractor Extractor,
	records repo.RecordRepository,
	files storage.FileStorage,
	notifier Notifier,
	m *metrics.Pipeline,
	logger *zap.SugaredLogger,
) *RecordService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RecordService{
		extractor: extractor,
		records:   records,
		files:     files,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Extract распознаёт свидетельство о рождении.
func (s *RecordService) Extract(ctx context.Context, up extract.Upload) (*extract.BirthCertificate, error) {
	start := time.Now()
	res, err := s.extractor.ExtractBirthCertificate(ctx, up)
	s.metrics.ObserveExtraction("psa", extractionResult(err), time.Since(start))
	return res, err
}

// ExtractForm137 распознаёт Form 137.
func (s *RecordService) ExtractForm137(ctx context.Context, up extract.Upload) (*extract.Form137, error) {
	start := time.Now()
	res, err := s.extractor.ExtractForm137(ctx, up)
	s.metrics.ObserveExtraction("form137", extractionResult(err), time.Since(start))
	return res, err
}

// Save сохраняет запись с проверкой дубликата и отправляет письмо с основным документом.
func (s *RecordService) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	var t trace
	return s.save(ctx, req, &t)
}

// Submit прогоняет загрузку через весь конвейер.
// Ошибка распознавания прерывает его до записи в БД.
func (s *RecordService) Submit(ctx context.Context, up extract.Upload, email string) (*SaveResult, error) {
	t := trace{StateExtracting}
	bc, err := s.Extract(ctx, up)
	if err != nil {
		return nil, err
	}
	t.to(StateExtracted)

	return s.save(ctx, SaveRequest{
		Fields:    bc.Fields,
		ImagePath: bc.ImagePath,
		Email:     email,
	}, &t)
}

func (s *RecordService) save(ctx context.Context, req SaveRequest, t *trace) (*SaveResult, error) {
	rec := model.NewRecord(req.Fields, req.School)
	rec.Age = strings.TrimSpace(req.Age)
	if rec.Name == "" || rec.Birthdate == "" {
		return nil, fmt.Errorf("%w: name and birthdate are required", ErrBadInput)
	}
	var err error
	if rec.ImagePath, err = refOrNil(req.ImagePath); err != nil {
		return nil, err
	}
	if rec.Form137Path, err = refOrNil(req.Form137Path); err != nil {
		return nil, err
	}

	t.to(StatePersisting)
	id, err := s.records.InsertIfNew(ctx, rec)
	switch {
	case errors.Is(err, repo.ErrDuplicate):
		t.to(StateRejectedDuplicate)
		s.metrics.IncRecord("duplicate")
		s.logger.Infow("Save: duplicate record", "name", rec.Name, "birthdate", rec.Birthdate)
		return &SaveResult{State: t.current(), Trace: *t}, nil
	case err != nil:
		s.metrics.IncRecord("error")
		s.logger.Errorw("Save: store failure", "error", err)
		return nil, err
	}
	t.to(StatePersisted)
	s.metrics.IncRecord("created")
	s.logger.Infow("Save: record created", "id", id)

	// Только основной документ; прочие слоты на момент создания не уведомляются
	var refs []string
	if rec.ImagePath != nil {
		refs = append(refs, *rec.ImagePath)
	}
	t.to(StateNotifying)
	out := s.notifier.Notify(ctx, req.Email, rec.Name, refs)
	s.metrics.IncNotification(string(out.Status))
	switch out.Status {
	case notify.StatusSent:
		t.to(StateNotified)
	case notify.StatusSkipped:
		t.to(StateNotifySkipped)
	default:
		t.to(StateNotifyFailed)
		s.logger.Warnw("Save: notification failed", "id", id, "timed_out", out.TimedOut(), "error", out.Err)
	}

	return &SaveResult{ID: id, State: t.current(), Trace: *t, Notification: out}, nil
}

// refOrNil проверяет ссылку на файл, полученную от клиента.
func refOrNil(ref string) (*string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if storage.SanitizeName(ref) != ref {
		return nil, fmt.Errorf("%w: invalid file reference %q", ErrBadInput, ref)
	}
	return &ref, nil
}

// BindAttachment сохраняет поздно пришедший файл и привязывает его к слоту записи.
// Основной документ через привязку не заменяется. Уведомление не отправляется.
func (s *RecordService) BindAttachment(ctx context.Context, id int64, slotTag string, up extract.Upload) (BindResult, error) {
	res := BindResult{State: BindReceiving}

	slot, err := model.ParseSlot(slotTag)
	if err != nil || slot == model.SlotPrimary {
		res.State = BindInvalidSlot
		s.metrics.IncBind("unknown", "invalid_slot")
		return res, fmt.Errorf("%w: %q", model.ErrInvalidSlot, slotTag)
	}
	res.Slot = slot
	if up.Body == nil {
		return res, fmt.Errorf("%w: no file uploaded", ErrBadInput)
	}

	// id + случайный суффикс: повторные загрузки в тот же слот в ту же секунду не пересекаются
	ref := storage.BuildName(slot.Tag(), bindDiscriminator(id), s.now(), up.Filename)
	if err := s.files.Save(ctx, ref, up.Body); err != nil {
		return res, fmt.Errorf("store attachment: %w", err)
	}

	err = s.records.BindAttachment(ctx, id, slot, ref)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		res.State = BindNotFound
		s.metrics.IncBind(string(slot), "not_found")
		if rmErr := s.files.Remove(ctx, ref); rmErr != nil {
			s.logger.Warnw("Bind: remove orphan file", "file", ref, "error", rmErr)
		}
		return res, err
	case errors.Is(err, model.ErrInvalidSlot):
		res.State = BindInvalidSlot
		s.metrics.IncBind(string(slot), "invalid_slot")
		return res, err
	case err != nil:
		s.metrics.IncBind(string(slot), "error")
		return res, err
	}

	res.State = BindBound
	res.Ref = ref
	s.metrics.IncBind(string(slot), "bound")
	s.logger.Infow("Bind: attachment bound", "id", id, "slot", slot, "file", ref)
	return res, nil
}

// bindDiscriminator даёт уникальную часть имени файла вложения.
func bindDiscriminator(id int64) string {
	return strconv.FormatInt(id, 10) + "-" + uuid.NewString()[:8]
}

// List возвращает все записи, новые первыми.
func (s *RecordService) List(ctx context.Context) ([]model.Record, error) {
	return s.records.ListAll(ctx)
}

// Get возвращает запись по id.
func (s *RecordService) Get(ctx context.Context, id int64) (*model.Record, error) {
	return s.records.GetByID(ctx, id)
}

// Delete удаляет запись. Файлы остаются в хранилище.
func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("Delete: record deleted", "id", id)
	return nil
}

// OpenFile открывает сохранённый файл по имени.
func (s *RecordService) OpenFile(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.files.Open(ctx, name)
}

// ExportXLSX выгружает все записи в XLSX.
func (s *RecordService) ExportXLSX(ctx context.Context) ([]byte, error) {
	recs, err := s.records.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return export.RecordsXLSX(recs)
}

func extractionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, extract.ErrTimeout):
		return "timeout"
	case errors.Is(err, extract.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, extract.ErrInvalidDocument), errors.Is(err, extract.ErrInvalidImage):
		return "rejected"
	default:
		return "error"
	}
}
