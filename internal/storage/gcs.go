package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage хранит файлы в бакете Google Cloud Storage.
type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStorage создаёт клиент GCS. credentialsFile опционален (иначе ADC).
func NewGCSStorage(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage: failed in creating storage client: %w", err)
	}
	return &GCSStorage{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}, nil
}

// Close закрывает клиент GCS.
func (s *GCSStorage) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *GCSStorage) object(name string) *storage.ObjectHandle {
	if s.prefix == "" {
		return s.bucket.Object(name)
	}
	return s.bucket.Object(path.Join(s.prefix, name))
}

func (s *GCSStorage) Save(ctx context.Context, name string, r io.Reader) error {
	if err := validName(name); err != nil {
		return err
	}
	// отмена контекста до Close прерывает загрузку, частичный объект не создаётся
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.object(name).NewWriter(wctx)
	w.ContentType = mime.TypeByExtension(path.Ext(name))
	if err := copyAndCommit(w, r, cancel); err != nil {
		return fmt.Errorf("gcs storage: %s: %w", name, err)
	}
	return nil
}

// copyAndCommit пишет r в w. При ошибке записи сначала вызывает abort, потом Close.
func copyAndCommit(w io.WriteCloser, r io.Reader, abort context.CancelFunc) error {
	if _, err := io.Copy(w, r); err != nil {
		abort()
		_ = w.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *GCSStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	rd, err := s.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("gcs storage: open %s: %w", name, err)
	}
	return rd, nil
}

func (s *GCSStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, nil
	}
	_, err := s.object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GCSStorage) Remove(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := s.object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotExist
	}
	return err
}
