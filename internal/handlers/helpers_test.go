package handlers_test

import (
	"AssiScan/internal/config"
	"AssiScan/internal/extract"
	"AssiScan/internal/handlers"
	"AssiScan/internal/middleware"
	"AssiScan/internal/model"
	"AssiScan/internal/notify"
	"AssiScan/internal/repo"
	"AssiScan/internal/service"
	"AssiScan/internal/storage"
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Local light mocks
type hMockRecordRepo struct{ mock.Mock }

func (m *hMockRecordRepo) InsertIfNew(ctx context.Context, rec *model.Record) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}
func (m *hMockRecordRepo) BindAttachment(ctx context.Context, id int64, slot model.Slot, ref string) error {
	return m.Called(ctx, id, slot, ref).Error(0)
}
func (m *hMockRecordRepo) ListAll(ctx context.Context) ([]model.Record, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.Record); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockRecordRepo) GetByID(ctx context.Context, id int64) (*model.Record, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*model.Record); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockRecordRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var _ repo.RecordRepository = (*hMockRecordRepo)(nil)

type hMockExtractor struct{ mock.Mock }

func (m *hMockExtractor) ExtractBirthCertificate(ctx context.Context, up extract.Upload) (*extract.BirthCertificate, error) {
	args := m.Called(ctx, up)
	if v, ok := args.Get(0).(*extract.BirthCertificate); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockExtractor) ExtractForm137(ctx context.Context, up extract.Upload) (*extract.Form137, error) {
	args := m.Called(ctx, up)
	if v, ok := args.Get(0).(*extract.Form137); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ service.Extractor = (*hMockExtractor)(nil)

type hMockNotifier struct{ mock.Mock }

func (m *hMockNotifier) Notify(ctx context.Context, recipient, subjectName string, refs []string) notify.Outcome {
	return m.Called(ctx, recipient, subjectName, refs).Get(0).(notify.Outcome)
}

var _ service.Notifier = (*hMockNotifier)(nil)

type testEnv struct {
	router http.Handler
	cfg    *config.Config
	repo   *hMockRecordRepo
	ex     *hMockExtractor
	ntf    *hMockNotifier
	files  storage.FileStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{AuthSecret: "test-secret", MaxUploadMB: 1}
	logger := zap.NewNop().Sugar()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		cfg:   cfg,
		repo:  &hMockRecordRepo{},
		ex:    &hMockExtractor{},
		ntf:   &hMockNotifier{},
		files: files,
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	recordSvc := service.NewRecordService(env.ex, env.repo, files, env.ntf, nil, logger)
	adminSvc := service.NewAdminService("admin", string(hash))
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	h := handlers.NewHandler(recordSvc, adminSvc, metrics, logger, cfg)
	env.router = h.Router
	return env
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, secret string) {
	t.Helper()
	rr := httptest.NewRecorder()
	_ = middleware.SetLoginCookie(rr, userID, secret)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

// multipartBody собирает форму с одним файлом и полями.
func multipartBody(t *testing.T, fileField, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, _ = fw.Write(content)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
