package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes attachments to a directory served by the HTTP server
// under /uploads/. Development fallback when no Cloudinary URL is set.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStore) Upload(ctx context.Context, objectPath, contentType string, data io.Reader) error {
	full := filepath.Join(s.dir, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("writing upload: %w", err)
	}
	return nil
}

func (s *LocalStore) PublicURL(objectPath string) string {
	return s.baseURL + "/uploads/" + objectPath
}
