// Package storage persists uploaded model binaries behind a common Backend
// interface. Three implementations exist: local disk, the Pinata IPFS
// pinning service, and a MinIO/S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// MaxUploadBytes is the payload ceiling enforced before any backend is invoked.
const MaxUploadBytes int64 = 50 * 1024 * 1024

const glbContentType = "model/gltf-binary"

var (
	// ErrUnsupportedFileType is returned for uploads that are neither named
	// *.glb nor declared as model/gltf-binary.
	ErrUnsupportedFileType = errors.New("storage: only .glb files are allowed")
	// ErrPayloadTooLarge is returned for uploads above MaxUploadBytes.
	ErrPayloadTooLarge = fmt.Errorf("storage: file exceeds %d bytes", MaxUploadBytes)
)

// StoredObject describes a successfully written binary.
type StoredObject struct {
	// URL is publicly resolvable by clients.
	URL string
	// Reference is the backend-specific token needed to delete the object
	// later: a filename for local disk, a CID for Pinata, an object key for
	// MinIO.
	Reference string
}

// Backend stores and deletes model binaries. Store is not safe to retry
// without deleting the previous reference first. Delete tolerates objects
// that are already gone.
type Backend interface {
	Store(ctx context.Context, data []byte, originalName, contentType string) (*StoredObject, error)
	Delete(ctx context.Context, reference string) error
	Kind() string
}

// ValidateUpload applies the acceptance filter shared by every backend:
// file type first, then size. Callers run it before any bytes reach a
// backend.
func ValidateUpload(originalName, contentType string, size int64) error {
	if !strings.HasSuffix(originalName, ".glb") && !strings.EqualFold(strings.TrimSpace(contentType), glbContentType) {
		return ErrUnsupportedFileType
	}
	if size > MaxUploadBytes {
		return ErrPayloadTooLarge
	}
	return nil
}

// GenerateObjectName builds a collision-resistant object name from a
// nanosecond timestamp and the sanitized original filename. Folding the
// timestamp in makes concurrent uploads of the same file practically
// collision-free without a database lookup.
func GenerateObjectName(originalName string) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitizeFilename(originalName))
}

// sanitizeFilename replaces every rune outside [A-Za-z0-9._-] so no path
// separators or traversal sequences survive into generated names.
func sanitizeFilename(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "upload.glb"
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "upload.glb"
	}
	return cleaned
}

// NewBackendFromEnv selects the backend variant via STORAGE_BACKEND
// (local, pinata or s3). Local disk is the default.
func NewBackendFromEnv() (Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND")))
	switch kind {
	case "", "local", "disk":
		return NewLocalBackendFromEnv()
	case "pinata", "ipfs":
		return NewPinataBackendFromEnv()
	case "s3", "minio":
		return NewMinioBackendFromEnv()
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", kind)
	}
}
