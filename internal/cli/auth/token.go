package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken - токен ещё не сохранён (нужен login).
var ErrNoToken = errors.New("not logged in")

// TokenStore хранит auth-токен CLI между запусками.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}

// FileStore - файловое хранилище токена.
type FileStore struct {
	Path string
}

var _ TokenStore = FileStore{}

// Save записывает токен с правами 0600, создавая каталог при необходимости.
func (s FileStore) Save(token string) error {
	if s.Path == "" {
		return errors.New("token file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(token), 0o600)
}

// Load читает токен. Отсутствующий или пустой файл даёт ErrNoToken.
func (s FileStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// Clear удаляет файл токена; отсутствие файла не ошибка.
func (s FileStore) Clear() error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
