package api

import (
	"AssiScan/internal/cli/auth"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// CookieName - имя cookie, в которой сервер отдаёт токен администратора.
const CookieName = "auth_token"

// ErrNoAuthCookie - в ответе на login нет auth cookie.
var ErrNoAuthCookie = errors.New("no auth cookie in response")

// Client используется всеми запросами; в тестах можно подменить.
var Client = http.DefaultClient

// Do выполняет запрос и читает тело целиком. Если token непустой, он передаётся как auth cookie.
func Do(ctx context.Context, method, url string, body io.Reader, contentType, token string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	resp, err := Client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, b, nil
}

// PostJSON sends a JSON POST request.
func PostJSON(ctx context.Context, url string, payload any, token string) (*http.Response, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return Do(ctx, http.MethodPost, url, bytes.NewReader(b), "application/json", token)
}

// Get sends a GET request.
func Get(ctx context.Context, url, token string) (*http.Response, []byte, error) {
	return Do(ctx, http.MethodGet, url, nil, "", token)
}

// Delete sends a DELETE request.
func Delete(ctx context.Context, url, token string) (*http.Response, []byte, error) {
	return Do(ctx, http.MethodDelete, url, nil, "", token)
}

// PostMultipart отправляет форму с текстовыми полями и одним файлом с диска.
func PostMultipart(ctx context.Context, url string, fields map[string]string, fileField, filePath, token string) (*http.Response, []byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, nil, err
		}
	}
	part, err := mw.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}
	return Do(ctx, http.MethodPost, url, &buf, mw.FormDataContentType(), token)
}

// PersistAuthFromResponse извлекает auth cookie из ответа и сохраняет его в store.
func PersistAuthFromResponse(resp *http.Response, store auth.TokenStore) error {
	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.Value != "" {
			return store.Save(c.Value)
		}
	}
	return ErrNoAuthCookie
}

// StatusError строит ошибку из неуспешного ответа сервера.
func StatusError(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}
