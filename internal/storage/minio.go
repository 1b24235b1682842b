// internal/storage/minio.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"beef-back/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignExpiry is how long history image links stay valid.
const PresignExpiry = time.Hour

// MinIOArchive keeps a copy of every analysed upload.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

func NewMinIOArchive(ctx context.Context, cfg config.StorageConfig) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Create bucket if it doesn't exist
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOArchive{client: client, bucket: cfg.Bucket}, nil
}

// Archive uploads data and returns its object key.
func (m *MinIOArchive) Archive(ctx context.Context, owner, ext, contentType string, data []byte) (string, error) {
	key := ObjectKey(owner, ext)

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return key, nil
}

// PresignedURL generates a temporary download link for key.
func (m *MinIOArchive) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Remove deletes the object at key.
func (m *MinIOArchive) Remove(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}

// ObjectKey builds cuts/<owner>/<uuid><ext>. The owner segment is escaped so
// an email can never introduce extra path segments.
func ObjectKey(owner, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join("cuts", url.PathEscape(owner), uuid.NewString()+ext)
}
