// Package storage keeps user uploaded media in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lingolink/backend/internal/config"
	"github.com/lingolink/backend/internal/logging"
)

// ErrEmptyKey is returned when an object is saved without a name.
var ErrEmptyKey = errors.New("storage: empty object key")

const avatarCacheControl = "public, max-age=31536000, immutable"

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// AvatarStore writes profile pictures to a bucket and reports the URL they
// are served from.
type AvatarStore struct {
	uploader uploader
	bucket   string
	baseURL  string
}

// NewAvatarStore configures an uploader for the object store in cfg.
func NewAvatarStore(ctx context.Context, cfg config.ObjectStoreConfig) (*AvatarStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("avatar store: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	// Avatars are small; a single part keeps uploads to one request.
	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = manager.MinUploadPartSize
		u.Concurrency = 1
		u.LeavePartsOnError = false
	})

	return newAvatarStore(up, cfg), nil
}

func newAvatarStore(up uploader, cfg config.ObjectStoreConfig) *AvatarStore {
	return &AvatarStore{
		uploader: up,
		bucket:   cfg.Bucket,
		baseURL:  publicBaseURL(cfg),
	}
}

// Save uploads r under name and returns its public URL.
func (s *AvatarStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	key := strings.TrimLeft(name, "/")
	if key == "" {
		return "", ErrEmptyKey
	}

	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         r,
		ACL:          s3types.ObjectCannedACLPublicRead,
		CacheControl: aws.String(avatarCacheControl),
	}
	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload avatar %s: %w", key, err)
	}

	logging.FromContext(ctx).Debug("avatar uploaded", "bucket", s.bucket, "key", key)
	return s.URL(key), nil
}

// URL returns the public location of key.
func (s *AvatarStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// publicBaseURL falls back to the bucket's own address when no CDN or
// public base URL is configured.
func publicBaseURL(cfg config.ObjectStoreConfig) string {
	if base := strings.TrimSuffix(strings.TrimSpace(cfg.PublicBaseURL), "/"); base != "" {
		return base
	}
	if endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		return endpoint + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}
