package attach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps attachments as objects in a MinIO/S3 bucket for
// deployments without a durable local disk. Refs are object names; the
// API process streams objects back itself so the public URL shape stays
// identical to the disk backend.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Save(ctx context.Context, r io.Reader, originalName string) (string, int64, error) {
	ref := SafeName(originalName)
	info, err := s.client.PutObject(ctx, s.bucket, ref, r, -1, minio.PutObjectOptions{})
	if err != nil {
		return "", 0, fmt.Errorf("put attachment: %w", err)
	}
	return ref, info.Size, nil
}

func (s *MinioStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	// GetObject is lazy; stat now so a missing object surfaces as NotFound
	// instead of a read error mid-response.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	return obj, nil
}

func (s *MinioStore) Remove(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

func (s *MinioStore) URL(ref string) string {
	return "/uploads/" + ref
}
