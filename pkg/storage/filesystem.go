package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore persists uploads on disk under a base directory.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, publicBaseURL string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload writes the given bytes under a kind-scoped unique name.
func (s *LocalStore) Upload(ctx context.Context, data []byte, kind Kind, filename string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	storageID := path.Join(string(kind), uuid.NewString()+sanitizedExt(filename))
	target := filepath.Join(s.baseDir, filepath.FromSlash(storageID))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write upload: %w", err)
	}
	return Object{URL: s.publicBaseURL + "/" + storageID, StorageID: storageID}, nil
}

// Delete removes a stored file if present.
func (s *LocalStore) Delete(ctx context.Context, storageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.baseDir, filepath.FromSlash(storageID))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

func sanitizedExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		return ""
	}
	return ext
}
