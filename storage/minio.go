package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend stores model binaries in an S3-compatible bucket. The stored
// reference is the object key; the public URL is the object's location under
// the configured public base URL.
type MinioBackend struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioBackendFromEnv initialises a MinioBackend using MINIO_* environment
// variables and ensures the bucket exists.
func NewMinioBackendFromEnv() (*MinioBackend, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, errors.New("storage: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required")
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &MinioBackend{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (b *MinioBackend) Kind() string { return "s3" }

// Store uploads data under a generated key. minio-go handles chunked
// multipart transfer for large payloads on its own.
func (b *MinioBackend) Store(ctx context.Context, data []byte, originalName, contentType string) (*StoredObject, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("storage: minio backend not configured")
	}

	declared := strings.TrimSpace(contentType)
	if declared == "" {
		declared = http.DetectContentType(data)
	}

	// Keys get a uuid prefix so concurrent uploads of the same filename
	// never collide inside the bucket.
	key := fmt.Sprintf("models/%s-%s", uuid.NewString(), sanitizeFilename(originalName))

	uploadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	reader := bytes.NewReader(data)
	if _, err := b.client.PutObject(uploadCtx, b.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: declared,
	}); err != nil {
		return nil, fmt.Errorf("storage: upload object: %w", err)
	}

	return &StoredObject{
		URL:       fmt.Sprintf("%s/%s/%s", b.publicURL, b.bucket, key),
		Reference: key,
	}, nil
}

// Delete removes the object named by the key. Removing a missing key is a
// no-op on the S3 API, so no special tolerance is needed.
func (b *MinioBackend) Delete(ctx context.Context, reference string) error {
	if b == nil || b.client == nil {
		return nil
	}
	key := strings.TrimSpace(reference)
	if key == "" {
		return nil
	}

	removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.client.RemoveObject(removeCtx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: remove object: %w", err)
	}
	return nil
}
