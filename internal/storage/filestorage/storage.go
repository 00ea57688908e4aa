package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mikutaniguchi/ticket-collection/internal/storage"
)

// FileStorage is the object-storage collaborator: objects are addressed by a
// slash separated path and are publicly fetchable by URL.
type FileStorage interface {
	Put(ctx context.Context, objectPath string, r io.Reader) (url string, size int64, err error)
	Delete(ctx context.Context, objectPath string) error
	URL(objectPath string) string
	GetFullPath(relativePath string) string
	BaseURL() string
	GetBaseDir() string
}

// LocalFileStorage keeps objects on the local filesystem below baseDir.
type LocalFileStorage struct {
	baseDir string // e.g. "./uploads"
	baseURL string // e.g. "http://localhost:8080/uploads"
	maxSize int64
}

func NewLocalFileStorage(baseDir, baseURL string, maxSize int64) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// Put writes r to objectPath. A partially written object is removed when the
// copy fails, exceeds maxSize or ctx is cancelled.
func (s *LocalFileStorage) Put(ctx context.Context, objectPath string, r io.Reader) (string, int64, error) {
	const op = "filestorage.Put"

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	filePath := s.GetFullPath(clean)

	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	default:
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return "", 0, fmt.Errorf("%s: failed to create directories: %w", op, err)
		}
	}

	dst, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("%s: failed to create destination file: %w", op, err)
	}
	defer dst.Close()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, src)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			_ = os.Remove(filePath)
			return "", 0, fmt.Errorf("%s: failed to copy file: %w", op, copyErr)
		}
	case <-ctx.Done():
		_ = os.Remove(filePath)
		return "", 0, ctx.Err()
	}

	if s.maxSize > 0 && size > s.maxSize {
		_ = os.Remove(filePath)
		return "", 0, fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	return s.URL(clean), size, nil
}

func (s *LocalFileStorage) Delete(ctx context.Context, objectPath string) error {
	const op = "filestorage.Delete"

	if err := ctx.Err(); err != nil {
		return err
	}

	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(s.GetFullPath(clean)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *LocalFileStorage) URL(objectPath string) string {
	return s.baseURL + "/" + strings.TrimLeft(objectPath, "/")
}

func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(relativePath))
}

func (s *LocalFileStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalFileStorage) GetBaseDir() string {
	return s.baseDir
}

func cleanObjectPath(p string) (string, error) {
	if p == "" || strings.Contains(p, "\\") {
		return "", storage.ErrInvalidPath
	}

	clean := path.Clean("/" + p)[1:]
	if clean == "" || clean != strings.TrimPrefix(p, "/") {
		return "", storage.ErrInvalidPath
	}

	return clean, nil
}
