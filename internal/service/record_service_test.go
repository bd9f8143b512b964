package service

import (
	"AssiScan/internal/extract"
	"AssiScan/internal/metrics"
	"AssiScan/internal/model"
	"AssiScan/internal/notify"
	"AssiScan/internal/repo"
	"AssiScan/internal/storage"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type svcFixture struct {
	svc   *RecordService
	ex    *mockExtractor
	repo  *mockRecordRepo
	ntf   *mockNotifier
	files *storage.LocalStorage
}

func newSvcFixture(t *testing.T) *svcFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f := &svcFixture{
		ex:    &mockExtractor{},
		repo:  &mockRecordRepo{},
		ntf:   &mockNotifier{},
		files: files,
	}
	f.svc = NewRecordService(f.ex, f.repo, files, f.ntf, metrics.New(prometheus.NewRegistry()), zap.NewNop().Sugar())
	f.svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f
}

func juan() model.Fields {
	return model.Fields{Name: "Juan Dela Cruz", Birthdate: "2001-05-04", Sex: "Male"}
}

func TestRecordService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("created and notified with primary only", func(t *testing.T) {
		f := newSvcFixture(t)
		f.repo.On("InsertIfNew", mock.Anything, mock.MatchedBy(func(r *model.Record) bool {
			return r.NameKey == "juan dela cruz" && r.Birthdate == "2001-05-04" &&
				r.ImagePath != nil && *r.ImagePath == "PSA_a_1_scan.png" &&
				r.Form137Path != nil && *r.Form137Path == "F137_SCAN_b_2_f.png"
		})).Return(int64(7), nil).Once()
		f.ntf.On("Notify", mock.Anything, "juan@example.com", "Juan Dela Cruz", []string{"PSA_a_1_scan.png"}).
			Return(notify.Outcome{Status: notify.StatusSent}).Once()

		res, err := f.svc.Save(ctx, SaveRequest{
			Fields:      juan(),
			ImagePath:   "PSA_a_1_scan.png",
			Form137Path: "F137_SCAN_b_2_f.png",
			Email:       "juan@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), res.ID)
		assert.Equal(t, StateNotified, res.State)
		assert.Equal(t, []State{StatePersisting, StatePersisted, StateNotifying, StateNotified}, res.Trace)
		assert.False(t, res.EmailFailed())
		f.repo.AssertExpectations(t)
		f.ntf.AssertExpectations(t)
	})

	t.Run("duplicate halts without notification", func(t *testing.T) {
		f := newSvcFixture(t)
		f.repo.On("InsertIfNew", mock.Anything, mock.Anything).Return(int64(0), repo.ErrDuplicate).Once()

		res, err := f.svc.Save(ctx, SaveRequest{Fields: juan(), Email: "juan@example.com"})
		require.NoError(t, err)
		assert.Equal(t, StateRejectedDuplicate, res.State)
		assert.Zero(t, res.ID)
		f.ntf.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notification failure is a flag", func(t *testing.T) {
		f := newSvcFixture(t)
		f.repo.On("InsertIfNew", mock.Anything, mock.Anything).Return(int64(3), nil).Once()
		f.ntf.On("Notify", mock.Anything, "juan@example.com", "Juan Dela Cruz", []string(nil)).
			Return(notify.Outcome{Status: notify.StatusFailed, Err: notify.ErrDispatch}).Once()

		res, err := f.svc.Save(ctx, SaveRequest{Fields: juan(), Email: "juan@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.ID)
		assert.Equal(t, StateNotifyFailed, res.State)
		assert.True(t, res.EmailFailed())
	})

	t.Run("no email skips", func(t *testing.T) {
		f := newSvcFixture(t)
		f.repo.On("InsertIfNew", mock.Anything, mock.Anything).Return(int64(4), nil).Once()
		f.ntf.On("Notify", mock.Anything, "", "Juan Dela Cruz", mock.Anything).
			Return(notify.Outcome{Status: notify.StatusSkipped}).Once()

		res, err := f.svc.Save(ctx, SaveRequest{Fields: juan()})
		require.NoError(t, err)
		assert.Equal(t, StateNotifySkipped, res.State)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		f := newSvcFixture(t)
		storeErr := errors.Join(repo.ErrStore, errors.New("connection refused"))
		f.repo.On("InsertIfNew", mock.Anything, mock.Anything).Return(int64(0), storeErr).Once()

		res, err := f.svc.Save(ctx, SaveRequest{Fields: juan()})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, repo.ErrStore)
		f.ntf.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing natural key is bad input", func(t *testing.T) {
		f := newSvcFixture(t)
		_, err := f.svc.Save(ctx, SaveRequest{Fields: model.Fields{Name: "Juan"}})
		assert.ErrorIs(t, err, ErrBadInput)
		_, err = f.svc.Save(ctx, SaveRequest{Fields: model.Fields{Birthdate: "2001-05-04"}})
		assert.ErrorIs(t, err, ErrBadInput)
		f.repo.AssertNotCalled(t, "InsertIfNew", mock.Anything, mock.Anything)
	})

	t.Run("path-like image reference rejected", func(t *testing.T) {
		f := newSvcFixture(t)
		_, err := f.svc.Save(ctx, SaveRequest{Fields: juan(), ImagePath: "../../etc/passwd"})
		assert.ErrorIs(t, err, ErrBadInput)
	})
}

func TestRecordService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("full pipeline", func(t *testing.T) {
		f := newSvcFixture(t)
		up := extract.Upload{Filename: "scan.png", Body: strings.NewReader("img")}
		f.ex.On("ExtractBirthCertificate", mock.Anything, up).
			Return(&extract.BirthCertificate{Fields: juan(), ImagePath: "PSA_x_1_scan.png"}, nil).Once()
		f.repo.On("InsertIfNew", mock.Anything, mock.Anything).Return(int64(1), nil).Once()
		f.ntf.On("Notify", mock.Anything, "juan@example.com", "Juan Dela Cruz", []string{"PSA_x_1_scan.png"}).
			Return(notify.Outcome{Status: notify.StatusSent}).Once()

		res, err := f.svc.Submit(ctx, up, "juan@example.com")
		require.NoError(t, err)
		assert.Equal(t, []State{
			StateExtracting, StateExtracted, StatePersisting, StatePersisted, StateNotifying, StateNotified,
		}, res.Trace)
	})

	t.Run("extraction failure aborts before store", func(t *testing.T) {
		f := newSvcFixture(t)
		f.ex.On("ExtractBirthCertificate", mock.Anything, mock.Anything).
			Return(nil, extract.ErrMalformedResponse).Once()

		res, err := f.svc.Submit(ctx, extract.Upload{Filename: "a.png"}, "juan@example.com")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, extract.ErrMalformedResponse)
		f.repo.AssertNotCalled(t, "InsertIfNew", mock.Anything, mock.Anything)
		f.ntf.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRecordService_BindAttachment(t *testing.T) {
	ctx := context.Background()

	t.Run("bound", func(t *testing.T) {
		f := newSvcFixture(t)
		isRef := mock.MatchedBy(func(ref string) bool {
			return strings.HasPrefix(ref, "form137_12-") && strings.HasSuffix(ref, "_1700000000_card.pdf")
		})
		f.repo.On("BindAttachment", mock.Anything, int64(12), model.SlotForm137, isRef).Return(nil).Once()

		res, err := f.svc.BindAttachment(ctx, 12, "Form137", extract.Upload{Filename: "card.pdf", Body: strings.NewReader("pdf")})
		require.NoError(t, err)
		assert.Equal(t, BindBound, res.State)

		rc, err := f.files.Open(ctx, res.Ref)
		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "pdf", string(b))
		f.repo.AssertExpectations(t)
	})

	t.Run("same slot twice keeps both files", func(t *testing.T) {
		f := newSvcFixture(t)
		f.svc.now = time.Now
		f.repo.On("BindAttachment", mock.Anything, int64(5), model.SlotForm137, mock.AnythingOfType("string")).Return(nil).Twice()

		first, err := f.svc.BindAttachment(ctx, 5, "form137", extract.Upload{Filename: "card.png", Body: strings.NewReader("FIRST")})
		require.NoError(t, err)
		second, err := f.svc.BindAttachment(ctx, 5, "form137", extract.Upload{Filename: "card.png", Body: strings.NewReader("SECOND")})
		require.NoError(t, err)
		require.NotEqual(t, first.Ref, second.Ref)

		for ref, want := range map[string]string{first.Ref: "FIRST", second.Ref: "SECOND"} {
			rc, err := f.files.Open(ctx, ref)
			require.NoError(t, err)
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			assert.Equal(t, want, string(b), ref)
		}
		f.repo.AssertExpectations(t)
	})

	t.Run("not found removes stored file", func(t *testing.T) {
		f := newSvcFixture(t)
		f.repo.On("BindAttachment", mock.Anything, int64(9999), model.SlotForm137, mock.AnythingOfType("string")).Return(repo.ErrNotFound).Once()

		res, err := f.svc.BindAttachment(ctx, 9999, "form137", extract.Upload{Filename: "card.pdf", Body: strings.NewReader("pdf")})
		assert.ErrorIs(t, err, repo.ErrNotFound)
		assert.Equal(t, BindNotFound, res.State)

		left, err := os.ReadDir(f.files.Dir())
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("invalid slot", func(t *testing.T) {
		f := newSvcFixture(t)
		for _, tag := range []string{"diploma", "primary", ""} {
			res, err := f.svc.BindAttachment(ctx, 1, tag, extract.Upload{Filename: "x.pdf", Body: strings.NewReader("x")})
			assert.ErrorIs(t, err, model.ErrInvalidSlot)
			assert.Equal(t, BindInvalidSlot, res.State)
		}
		f.repo.AssertNotCalled(t, "BindAttachment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRecordService_DeleteAndExport(t *testing.T) {
	ctx := context.Background()
	f := newSvcFixture(t)

	f.repo.On("Delete", mock.Anything, int64(5)).Return(repo.ErrNotFound).Once()
	assert.ErrorIs(t, f.svc.Delete(ctx, 5), repo.ErrNotFound)

	f.repo.On("ListAll", mock.Anything).Return([]model.Record{{ID: 2, Name: "B"}, {ID: 1, Name: "A"}}, nil).Once()
	b, err := f.svc.ExportXLSX(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
	f.repo.AssertExpectations(t)
}

func TestExtractionResult(t *testing.T) {
	assert.Equal(t, "ok", extractionResult(nil))
	assert.Equal(t, "timeout", extractionResult(extract.ErrTimeout))
	assert.Equal(t, "malformed", extractionResult(extract.ErrMalformedResponse))
	assert.Equal(t, "rejected", extractionResult(extract.ErrInvalidDocument))
	assert.Equal(t, "error", extractionResult(extract.ErrExtraction))
}
