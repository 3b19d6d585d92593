// Package storage keeps uploaded audio files, either on local disk under the
// static uploads folder or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Open for unknown files
var ErrNotFound = errors.New("storage: file not found")

// PublicPrefix is the URL prefix uploaded files are served under
const PublicPrefix = "/static/uploads/"

// LocalStore writes uploads into a directory served as static files
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload folder if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the upload folder
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes r to dir/filename, replacing any previous file of that name
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if filename != filepath.Base(filename) {
		return "", fmt.Errorf("storage: refusing nested path %q", filename)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: failed to close %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, filename)); err != nil {
		return "", fmt.Errorf("storage: failed to move %s into place: %w", filename, err)
	}

	return PublicPrefix + filename, nil
}

// Open returns the file stored as filename
func (s *LocalStore) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s: %w", filename, err)
	}
	return f, nil
}
