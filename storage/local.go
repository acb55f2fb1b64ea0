package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend writes model binaries beneath a managed directory. The stored
// reference is the generated filename; the public URL is the path under
// which main serves the directory statically.
type LocalBackend struct {
	baseDir   string
	publicURL string
}

// NewLocalBackendFromEnv initialises a LocalBackend from UPLOAD_DIR and
// UPLOAD_PUBLIC_PATH, creating the directory when absent.
func NewLocalBackendFromEnv() (*LocalBackend, error) {
	dir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if dir == "" {
		dir = "./data/uploads"
	}
	publicURL := strings.TrimSpace(os.Getenv("UPLOAD_PUBLIC_PATH"))
	if publicURL == "" {
		publicURL = "/uploads"
	}
	return NewLocalBackend(dir, publicURL)
}

// NewLocalBackend creates a LocalBackend rooted at dir, served under publicURL.
func NewLocalBackend(dir, publicURL string) (*LocalBackend, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure upload dir: %w", err)
	}
	return &LocalBackend{baseDir: abs, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// BaseDir returns the managed directory, for static file serving.
func (b *LocalBackend) BaseDir() string {
	if b == nil {
		return ""
	}
	return b.baseDir
}

func (b *LocalBackend) Kind() string { return "local" }

// Store writes data under a generated unique filename.
func (b *LocalBackend) Store(ctx context.Context, data []byte, originalName, contentType string) (*StoredObject, error) {
	if b == nil {
		return nil, errors.New("storage: local backend not configured")
	}
	name := GenerateObjectName(originalName)
	target := filepath.Join(b.baseDir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, fmt.Errorf("storage: write %s: %w", name, err)
	}
	return &StoredObject{
		URL:       b.publicURL + "/" + name,
		Reference: name,
	}, nil
}

// Delete removes the file named by reference. A file that is already gone is
// not an error. References that resolve outside the managed directory are
// rejected.
func (b *LocalBackend) Delete(ctx context.Context, reference string) error {
	if b == nil {
		return nil
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil
	}
	target := filepath.Join(b.baseDir, filepath.FromSlash(trimmed))
	if !strings.HasPrefix(target, b.baseDir+string(os.PathSeparator)) {
		return fmt.Errorf("storage: invalid reference %q", reference)
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", trimmed, err)
	}
	return nil
}
