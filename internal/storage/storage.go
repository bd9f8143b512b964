package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotExist - файла с таким именем в хранилище нет.
	ErrNotExist = errors.New("file does not exist")
	// ErrInvalidName - имя файла небезопасно (пути, пустое имя).
	ErrInvalidName = errors.New("invalid file name")
)

// FileStorage - плоское хранилище загруженных файлов.
type FileStorage interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Remove(ctx context.Context, name string) error
}

const gcsScheme = "gcs://"

// New выбирает реализацию по location: "gcs://<bucket>[/prefix]" или локальный каталог.
func New(ctx context.Context, location, credentialsFile string) (FileStorage, error) {
	if rest, ok := strings.CutPrefix(location, gcsScheme); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("gcs storage: bucket not set (expected %s<bucket>)", gcsScheme)
		}
		gcs, err := NewGCSStorage(ctx, bucket, prefix, credentialsFile)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	}
	local, err := NewLocalStorage(location)
	if err != nil {
		return nil, err
	}
	return local, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName делает имя файла безопасным: только буквы, цифры, '.', '_' и '-'.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

// BuildName строит имя вида {tag}_{discriminator}_{timestamp}_{original-name}.
func BuildName(tag, discriminator string, ts time.Time, original string) string {
	parts := []string{SanitizeName(tag)}
	if d := SanitizeName(discriminator); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts, strconv.FormatInt(ts.Unix(), 10))
	if o := SanitizeName(original); o != "" {
		parts = append(parts, o)
	} else {
		parts = append(parts, "upload")
	}
	return strings.Join(parts, "_")
}

// validName проверяет, что имя не выходит за пределы плоского каталога.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\") || name != SanitizeName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
