package extract

import (
	"AssiScan/internal/model"
	"AssiScan/internal/storage"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Теги документов в именах файлов.
const (
	TagBirthCertificate = "PSA"
	TagForm137Scan      = "F137_SCAN"
)

// Upload - загруженный пользователем файл.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// BirthCertificate - результат распознавания свидетельства о рождении.
type BirthCertificate struct {
	Fields    model.Fields `json:"structured_data"`
	ImagePath string       `json:"image_path"`
}

// Form137 - результат распознавания Form 137.
type Form137 struct {
	School    model.SchoolFields `json:"structured_data"`
	ImagePath string             `json:"image_path"`
}

// Gateway сохраняет загрузку и отдаёт её сервису распознавания.
type Gateway struct {
	ai     Completer
	files  storage.FileStorage
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewGateway создаёт шлюз распознавания.
func NewGateway(ai Completer, files storage.FileStorage, logger *zap.SugaredLogger) *Gateway {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gateway{ai: ai, files: files, logger: logger, now: time.Now}
}

// ExtractBirthCertificate распознаёт свидетельство о рождении (PSA).
// Файл сохраняется до обращения к сервису; явный is_valid_document=false удаляет его.
func (g *Gateway) ExtractBirthCertificate(ctx context.Context, up Upload) (*BirthCertificate, error) {
	img, ref, err := g.store(ctx, TagBirthCertificate, up)
	if err != nil {
		return nil, err
	}

	text, err := g.ai.Complete(ctx, img, birthCertificatePrompt)
	if err != nil {
		return nil, err
	}
	raw, err := parseReply(text, birthCertificateSchema, birthCertificateKeys)
	if err != nil {
		g.logger.Warnw("Extract: unparsable reply", "file", ref, "reply", truncate(text, 200))
		return nil, err
	}

	var reply struct {
		model.Fields
		IsValid *bool  `json:"is_valid_document"`
		Reason  string `json:"rejection_reason"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if reply.IsValid != nil && !*reply.IsValid {
		if err := g.files.Remove(ctx, ref); err != nil {
			g.logger.Warnw("Extract: remove rejected upload", "file", ref, "error", err)
		}
		reason := reply.Reason
		if reason == "" {
			reason = "Not a valid PSA Birth Certificate."
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, reason)
	}

	g.logger.Infow("Extract: birth certificate", "file", ref, "name_present", reply.Name != "")
	return &BirthCertificate{Fields: reply.Fields, ImagePath: ref}, nil
}

// ExtractForm137 распознаёт школьные поля Form 137.
func (g *Gateway) ExtractForm137(ctx context.Context, up Upload) (*Form137, error) {
	img, ref, err := g.store(ctx, TagForm137Scan, up)
	if err != nil {
		return nil, err
	}

	text, err := g.ai.Complete(ctx, img, form137Prompt)
	if err != nil {
		return nil, err
	}
	raw, err := parseReply(text, form137Schema, form137Keys)
	if err != nil {
		g.logger.Warnw("Extract: unparsable form137 reply", "file", ref, "reply", truncate(text, 200))
		return nil, err
	}

	var school model.SchoolFields
	if err := json.Unmarshal(raw, &school); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &Form137{School: school, ImagePath: ref}, nil
}

// store читает загрузку, проверяет, что это изображение, и кладёт её в хранилище.
func (g *Gateway) store(ctx context.Context, tag string, up Upload) (Image, string, error) {
	if up.Body == nil {
		return Image{}, "", fmt.Errorf("%w: no file uploaded", ErrInvalidImage)
	}
	data, err := io.ReadAll(up.Body)
	if err != nil {
		return Image{}, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Image{}, "", fmt.Errorf("%w: empty file", ErrInvalidImage)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		ct := strings.TrimSpace(strings.Split(up.ContentType, ";")[0])
		if !strings.HasPrefix(ct, "image/") {
			return Image{}, "", fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mime)
		}
		mime = ct
	}

	ref := storage.BuildName(tag, uuid.NewString()[:8], g.now(), up.Filename)
	if err := g.files.Save(ctx, ref, bytes.NewReader(data)); err != nil {
		return Image{}, "", fmt.Errorf("store upload: %w", err)
	}
	return Image{Name: ref, MIME: mime, Data: data}, ref, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
