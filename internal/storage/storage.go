package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrTooLarge is returned by Save when the source exceeds the size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Storage keeps uploaded documents under a single root directory, addressed
// by keys like "calls/<id>/bol.pdf".
type Storage struct {
	keys *keyResolver
}

func New(root string) (*Storage, error) {
	keys, err := newKeyResolver(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(keys.root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	return &Storage{keys: keys}, nil
}

// Save streams src to key. The file is written to a temporary name in
// the same directory and renamed into place, so readers never see a partial
// upload. maxBytes <= 0 disables the limit.
func (s *Storage) Save(key string, src io.Reader, maxBytes int64) (int64, error) {
	resolved, err := s.keys.resolve(key)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	reader := src
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}

	written, copyErr := io.Copy(tmp, reader)
	closeErr := tmp.Close()
	if copyErr != nil {
		return 0, fmt.Errorf("write %q: %w", key, copyErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close %q: %w", key, closeErr)
	}
	if maxBytes > 0 && written > maxBytes {
		return 0, ErrTooLarge
	}

	if err := os.Rename(tmpName, resolved); err != nil {
		return 0, fmt.Errorf("move %q into place: %w", key, err)
	}

	return written, nil
}

// Open returns the file and its info. Directories are reported as not found.
func (s *Storage) Open(key string) (*os.File, os.FileInfo, error) {
	resolved, err := s.keys.resolve(key)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, os.ErrNotExist
	}

	return file, info, nil
}

// Remove deletes a file or a whole record directory.
func (s *Storage) Remove(key string) error {
	resolved, err := s.keys.resolve(key)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// UniquePath joins dir and a collision-free variant of filename.
func UniquePath(dir string, filename string) string {
	return path.Join(dir, uuid.NewString()[:8]+"-"+filename)
}
