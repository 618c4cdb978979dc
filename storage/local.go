package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// LocalStorage keeps objects on a filesystem rooted at a base directory.
type LocalStorage struct {
	fs            afero.Fs
	publicBaseURL string
	maxSize       int64
}

// NewLocalStorage creates root if needed and confines all access to it.
func NewLocalStorage(root, publicBaseURL string, maxSize int64) (*LocalStorage, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return NewStorageOnFs(afero.NewBasePathFs(osFs, root), publicBaseURL, maxSize), nil
}

func NewStorageOnFs(fsys afero.Fs, publicBaseURL string, maxSize int64) *LocalStorage {
	return &LocalStorage{
		fs:            fsys,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSize:       maxSize,
	}
}

func (s *LocalStorage) MaxObjectSize() int64 {
	return s.maxSize
}

func (s *LocalStorage) EnsureDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	info, err := s.fs.Stat(clean)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("ensure directory %s: %w", clean, ErrConflict)
		}
		return nil
	}
	if err := s.fs.MkdirAll(clean, 0o755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", clean, err)
	}
	return nil
}

// Move renames from onto to. An empty directory at to is replaced; anything
// else already at to is a conflict.
func (s *LocalStorage) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := cleanPath(from)
	if err != nil {
		return err
	}
	dst, err := cleanPath(to)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	if strings.HasPrefix(dst, src+"/") {
		return fmt.Errorf("move %s into its own subtree %s: %w", src, dst, ErrInvalidPath)
	}

	if _, err := s.fs.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("move %s: %w", src, ErrNotFound)
		}
		return fmt.Errorf("move %s: %w", src, err)
	}

	if info, err := s.fs.Stat(dst); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("move to %s: %w", dst, ErrConflict)
		}
		empty, err := afero.IsEmpty(s.fs, dst)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", dst, err)
		}
		if !empty {
			return fmt.Errorf("move to %s: %w", dst, ErrConflict)
		}
		if err := s.fs.Remove(dst); err != nil {
			return fmt.Errorf("replace empty directory %s: %w", dst, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("inspect %s: %w", dst, err)
	}

	if parent := path.Dir(dst); parent != "." {
		if err := s.fs.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", dst, err)
		}
	}
	if err := s.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

func (s *LocalStorage) DeleteFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	info, err := s.fs.Stat(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", clean, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", clean, err)
	}
	if info.IsDir() {
		return fmt.Errorf("delete %s: is a directory: %w", clean, ErrInvalidPath)
	}
	if err := s.fs.Remove(clean); err != nil {
		return fmt.Errorf("delete %s: %w", clean, err)
	}
	return nil
}

func (s *LocalStorage) DeleteEmptyDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	info, err := s.fs.Stat(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove directory %s: %w", clean, ErrNotFound)
		}
		return fmt.Errorf("remove directory %s: %w", clean, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("remove directory %s: not a directory: %w", clean, ErrInvalidPath)
	}
	empty, err := afero.IsEmpty(s.fs, clean)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", clean, err)
	}
	if !empty {
		return fmt.Errorf("remove directory %s: %w", clean, ErrNotEmpty)
	}
	if err := s.fs.Remove(clean); err != nil {
		return fmt.Errorf("remove directory %s: %w", clean, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, clean)
}

// WriteUploadedObject streams r to p through a temporary sibling and renames it
// into place, so p never holds a partial object. size is the declared length;
// the stream is still capped at the limit in case the declaration lies.
func (s *LocalStorage) WriteUploadedObject(ctx context.Context, p string, r io.Reader, size int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.maxSize > 0 && size > s.maxSize {
		return 0, fmt.Errorf("write %s (%d bytes): %w", p, size, ErrTooLarge)
	}
	clean, err := cleanPath(p)
	if err != nil {
		return 0, err
	}
	if ok, err := afero.Exists(s.fs, clean); err != nil {
		return 0, fmt.Errorf("inspect %s: %w", clean, err)
	} else if ok {
		return 0, fmt.Errorf("write %s: %w", clean, ErrConflict)
	}

	dir := path.Dir(clean)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	tmp := path.Join(dir, "."+uuid.NewString()+".part")
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp object for %s: %w", clean, err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	written, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	closeErr := f.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr == nil && s.maxSize > 0 && written > s.maxSize {
		copyErr = fmt.Errorf("write %s: %w", clean, ErrTooLarge)
	}
	if copyErr != nil {
		_ = s.fs.Remove(tmp)
		if errors.Is(copyErr, ErrTooLarge) {
			return 0, copyErr
		}
		return 0, fmt.Errorf("write %s: %w", clean, copyErr)
	}

	if err := s.fs.Rename(tmp, clean); err != nil {
		_ = s.fs.Remove(tmp)
		return 0, fmt.Errorf("commit %s: %w", clean, err)
	}
	return written, nil
}

func (s *LocalStorage) OpenForRead(ctx context.Context, p string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", clean, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", clean, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", clean, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory: %w", clean, ErrNotFound)
	}
	return &Object{ReadSeekCloser: f, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// PublicLocator maps a storage path to the URL under which it is published.
func (s *LocalStorage) PublicLocator(p string) string {
	clean, err := cleanPath(p)
	if err != nil {
		return ""
	}
	segments := strings.Split(clean, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/" + strings.Join(segments, "/")
}

// HTTPFileSystem exposes stored objects read-only. Directories are hidden.
func (s *LocalStorage) HTTPFileSystem() http.FileSystem {
	return filesOnly{afero.NewHttpFs(afero.NewReadOnlyFs(s.fs)).Dir("/")}
}

type filesOnly struct {
	http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() || isTemporaryName(info.Name()) {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

// RemoveStaleTemporaries deletes partial uploads left behind by crashed writers.
func (s *LocalStorage) RemoveStaleTemporaries(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := afero.Walk(s.fs, ".", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || !isTemporaryName(info.Name()) || info.ModTime().After(cutoff) {
			return nil
		}
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		removed++
		return nil
	})
	return removed, err
}

func isTemporaryName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".part")
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.ContainsRune(p, 0) || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%q: %w", p, ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%q: %w", p, ErrInvalidPath)
		}
	}
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" {
		return "", fmt.Errorf("%q: %w", p, ErrInvalidPath)
	}
	return clean, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
