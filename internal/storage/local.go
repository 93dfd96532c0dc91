package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/soundpost/internal/shared"
)

// LocalStore writes objects below a root directory.
//
// URLs are built from BaseURL when set, and are file:// URLs otherwise.
type LocalStore struct {
	Root    string
	BaseURL string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{Root: abs, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) resolve(p string) (string, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(p))
	if full != s.Root && !strings.HasPrefix(full, s.Root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes storage root: %s", shared.ErrInvalidArgument, p)
	}
	return full, nil
}

// Upload writes data to the object's file.
func (s *LocalStore) Upload(_ context.Context, p string, data []byte, _ string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// DownloadURL returns the object's URL, failing with [shared.ErrNotFound] if it was never uploaded.
func (s *LocalStore) DownloadURL(_ context.Context, p string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("%w: object %s", shared.ErrNotFound, p)
	}

	if s.BaseURL != "" {
		return s.BaseURL + "/" + p, nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), nil
}
