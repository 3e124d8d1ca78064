// Package photos manages the image files attached to instruments. Each
// instrument owns at most one file, referenced by path from its record.
package photos

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultExt is used when an upload's extension is missing or not allowed.
const DefaultExt = ".png"

const nameLayout = "20060102_150405"

// maxAttempts bounds the collision retries in Save.
const maxAttempts = 100

var allowedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// Store writes photo files into a single directory.
type Store struct {
	Dir    string
	Logger *zap.Logger

	now func() time.Time
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating photo directory: %w", err)
	}
	return &Store{Dir: dir, Logger: logger, now: time.Now}, nil
}

// Ext returns the lower-cased extension of name if it is allowed, or
// DefaultExt otherwise.
func Ext(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if allowedExt[ext] {
		return ext
	}
	return DefaultExt
}

// Save stores data under a fresh timestamped name and returns its path.
// A nil upload stores nothing and returns ""; a zero-byte one is written.
func (s *Store) Save(data []byte, originalName string) (string, error) {
	if data == nil {
		return "", nil
	}

	ext := Ext(originalName)
	ts := s.now()
	for range maxAttempts {
		path := filepath.Join(s.Dir, fileName(ts)+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			ts = ts.Add(time.Microsecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating photo file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing photo: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("closing photo: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free photo name after %d attempts", maxAttempts)
}

// fileName renders ts as YYYYMMDD_HHMMSS_ffffff.
func fileName(ts time.Time) string {
	return fmt.Sprintf("%s_%06d", ts.Format(nameLayout), ts.Nanosecond()/int(time.Microsecond))
}

// Replace swaps the photo at oldPath for a new upload. Without an upload
// (nil data) the old path is returned unchanged.
func (s *Store) Replace(oldPath string, data []byte, originalName string) (string, error) {
	if data == nil {
		return oldPath, nil
	}
	s.Delete(oldPath)
	return s.Save(data, originalName)
}

// Delete removes a stored photo. Failures are logged and otherwise ignored.
func (s *Store) Delete(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.Logger.Warn("removing photo", zap.String("path", path), zap.Error(err))
	}
}

// Open opens a stored photo for reading.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, fs.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening photo: %w", err)
	}
	return f, nil
}

// ContentType returns the MIME type for a stored photo, by extension.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}
