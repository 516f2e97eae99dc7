// Package media hands out short-lived presigned URLs for tag photos stored in
// an S3-compatible bucket. The API never proxies image bytes; clients upload
// and download straight against the object store.
package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/util"
)

type Service struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewService(endpoint, accessKey, secretKey, bucket string, useSSL bool, ttl time.Duration) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{client: client, bucket: bucket, ttl: ttl}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// UploadURL mints an object key under the tag's prefix and returns a presigned
// PUT URL for it. The extension is taken from the client-supplied file name;
// anything suspicious collapses to .bin.
func (s *Service) UploadURL(ctx context.Context, tagID, fileName string) (objectKey string, uploadURL string, err error) {
	ext := strings.ToLower(path.Ext(fileName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ".bin"
	}
	objectKey = tagID + "/" + util.NewID("img") + ext

	presigned, err := s.client.PresignedPutObject(ctx, s.bucket, objectKey, s.ttl)
	if err != nil {
		return "", "", fmt.Errorf("presign upload: %w", err)
	}
	return objectKey, presigned.String(), nil
}

// DownloadURL returns a presigned GET URL for a stored object.
func (s *Service) DownloadURL(ctx context.Context, objectKey string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return presigned.String(), nil
}
