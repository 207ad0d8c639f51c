// Package storage keeps product photos on the local filesystem.
//
// Files are named by the store, never by the uploader:
//
//	20240301153000_cnm3p2aa0s2e6s4lr3ig.png
//	└ UTC timestamp ┘ └──── xid ────────┘ └ ext from sniffed content
//
// so a stored name is safe to join with the directory and can be validated
// with a single pattern before any filesystem access.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/xid"

	"github.com/sakif/inventory-service/internal/apperror"
)

// DefaultMaxBytes is the upload cap: 16 MiB.
const DefaultMaxBytes int64 = 16 << 20

// allowedTypes maps accepted content types to the extension written to disk.
var allowedTypes = []struct {
	mime string
	ext  string
}{
	{"image/png", ".png"},
	{"image/jpeg", ".jpg"},
	{"image/gif", ".gif"},
}

var namePattern = regexp.MustCompile(`^\d{14}_[0-9a-v]{20}\.(png|jpg|gif)$`)

// PhotoStore saves, serves and removes photo files under one directory.
type PhotoStore struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewPhotoStore creates dir if needed.
func NewPhotoStore(dir string, maxBytes int64, logger *slog.Logger) (*PhotoStore, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating photo dir %s: %w", dir, err)
	}
	return &PhotoStore{dir: dir, maxBytes: maxBytes, logger: logger, now: time.Now}, nil
}

// MaxBytes is the largest accepted photo.
func (s *PhotoStore) MaxBytes() int64 { return s.maxBytes }

// Save checks the content and writes it under a fresh name, returned on
// success. Content problems come back as validation errors on "photo".
//
// The file is written to a temp name and renamed into place, so a reader
// never sees a half-written photo.
func (s *PhotoStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", apperror.ValidationFailed("photo", "photo is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperror.ValidationFailed("photo",
			fmt.Sprintf("photo must be %d bytes or less", s.maxBytes))
	}

	ext, ok := extensionFor(mimetype.Detect(data))
	if !ok {
		return "", apperror.ValidationFailed("photo", "photo must be a png, jpeg or gif image")
	}

	name := s.now().UTC().Format("20060102150405") + "_" + xid.New().String() + ext

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: writing photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: closing photo: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: moving photo into place: %w", err)
	}

	s.logger.Debug("photo saved", slog.String("name", name), slog.Int("bytes", len(data)))
	return name, nil
}

// Remove deletes a stored photo. A missing file is not an error.
func (s *PhotoStore) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: removing photo %s: %w", name, err)
	}
	return nil
}

// RemoveQuietly is Remove for cleanup paths where the caller has already
// succeeded: failures are logged, not returned.
func (s *PhotoStore) RemoveQuietly(name string) {
	if err := s.Remove(name); err != nil {
		s.logger.Warn("failed to remove photo",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

// Path resolves a stored name to its file path. Anything that is not a name
// this store could have generated is reported as not found.
func (s *PhotoStore) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", apperror.NotFound("photo", name)
	}
	return filepath.Join(s.dir, name), nil
}

// ValidName reports whether name has the generated-name shape.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

func extensionFor(m *mimetype.MIME) (string, bool) {
	for _, t := range allowedTypes {
		if m.Is(t.mime) {
			return t.ext, true
		}
	}
	return "", false
}
