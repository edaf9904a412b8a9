// Package storage holds the object-store boundary for audio artifacts.
// Refs are opaque "bucket/key" URIs; callers never touch buckets directly.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/castpress/castpress/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the interface the pipeline uses for chunk and episode
// artifacts. Upload returns the opaque ref used for Download and Delete.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Ping(ctx context.Context) error
}

// MinioStore implements ObjectStore against any S3-compatible endpoint.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to the configured endpoint and ensures both
// buckets exist.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}

	s := &MinioStore{client: client}
	for _, bucket := range []string{cfg.ChunkBucket, cfg.EpisodeBucket} {
		if err := s.ensureBucket(ctx, bucket, cfg.Region); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, bucket, region string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

func (s *MinioStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return Ref(bucket, key), nil
}

func (s *MinioStore) Download(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := SplitRef(ref)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, ref string) error {
	bucket, key, err := SplitRef(ref)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func (s *MinioStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// Ref builds the opaque "bucket/key" URI handed back to callers.
func Ref(bucket, key string) string {
	return bucket + "/" + key
}

// SplitRef is the inverse of Ref.
func SplitRef(ref string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(ref, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed storage ref %q", ref)
	}
	return bucket, key, nil
}

var _ ObjectStore = (*MinioStore)(nil)
