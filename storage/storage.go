package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

var (
	ErrNotFound    = errors.New("storage: object not found")
	ErrConflict    = errors.New("storage: destination already exists")
	ErrNotEmpty    = errors.New("storage: directory not empty")
	ErrTooLarge    = errors.New("storage: object exceeds size limit")
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Object is an open stored file. Callers must Close it.
type Object struct {
	io.ReadSeekCloser
	Size    int64
	ModTime time.Time
}

// Backend addresses every object by a slash-separated path relative to its root.
type Backend interface {
	EnsureDirectory(ctx context.Context, path string) error
	Move(ctx context.Context, from, to string) error
	DeleteFile(ctx context.Context, path string) error
	DeleteEmptyDirectory(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	WriteUploadedObject(ctx context.Context, path string, r io.Reader, size int64) (int64, error)
	OpenForRead(ctx context.Context, path string) (*Object, error)
	PublicLocator(path string) string
	MaxObjectSize() int64
	HTTPFileSystem() http.FileSystem
	RemoveStaleTemporaries(ctx context.Context, olderThan time.Duration) (int, error)
}
