package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL - OpenAI-совместимый эндпоинт Gemini.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModels - модели в порядке предпочтения.
var DefaultModels = []string{
	"gemini-1.5-flash-002",
	"gemini-1.5-flash",
	"gemini-1.5-flash-001",
	"gemini-1.5-flash-8b",
	"gemini-1.5-pro",
}

// Config клиента сервиса распознавания.
type Config struct {
	APIKey  string
	BaseURL string        // default DefaultBaseURL
	Models  []string      // перебираются по порядку до первого успеха
	Timeout time.Duration // на одну попытку
}

// Image - одно загруженное изображение.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// Completer - внешний сервис: изображение + инструкция -> свободный текст.
type Completer interface {
	Complete(ctx context.Context, img Image, prompt string) (string, error)
}

// Client ходит в chat/completions с картинкой в виде data URL.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.SugaredLogger
}

// NewClient создаёт клиента и заполняет значения по умолчанию.
func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Complete перебирает модели; ошибка последней попытки возвращается, только если упали все.
// Таймаут прерывает перебор сразу.
func (c *Client) Complete(ctx context.Context, img Image, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: api key is not configured", ErrExtraction)
	}
	rid := uuid.NewString()
	var lastErr error
	for _, m := range c.cfg.Models {
		start := time.Now()
		text, err := c.generate(ctx, m, img, prompt)
		if err == nil {
			c.logger.Infow("ai.generate.ok",
				"req_id", rid, "model", m, "reply_len", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}
		lastErr = err
		c.logger.Warnw("ai.generate.failed",
			"req_id", rid, "model", m, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if isTimeout(err) {
			return "", fmt.Errorf("%w: model %s: %w", ErrTimeout, m, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", fmt.Errorf("%w: %w", ErrExtraction, lastErr)
}

func (c *Client) generate(ctx context.Context, model string, img Image, prompt string) (string, error) {
	dataURL := "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	body := map[string]any{
		"model":       model,
		"temperature": 0,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		return "", errors.New("ai service returned empty response")
	}
	return cc.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warnw("ai response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read ai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ai status %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	return buf.Bytes(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
