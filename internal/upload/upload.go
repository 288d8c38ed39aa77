package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"catalog-wizard/internal/config"
)

// ErrUploadFailed marks a failed upload the client may retry
var ErrUploadFailed = errors.New("image upload failed")

// File describes an image handed to an Uploader
type File struct {
	Filename    string
	ContentType string
	Size        int64
}

// Uploader stores an image and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, f File) (string, error)
}

// FromConfig builds the uploader selected by UPLOAD_DRIVER
func FromConfig(ctx context.Context, cfg config.UploadConfig) (Uploader, error) {
	switch cfg.Driver {
	case config.UploadCloudinary:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryUploadPreset == "" {
			return nil, fmt.Errorf("cloudinary config missing: CLOUDINARY_CLOUD_NAME, CLOUDINARY_UPLOAD_PRESET required")
		}
		return NewCloudinaryUploader(CloudinaryConfig{
			CloudName:    cfg.CloudinaryCloudName,
			UploadPreset: cfg.CloudinaryUploadPreset,
		}, nil), nil

	case config.UploadS3:
		if cfg.S3Region == "" || cfg.S3Bucket == "" || cfg.S3PublicBaseURL == "" {
			return nil, fmt.Errorf("S3 config missing: S3_REGION, S3_BUCKET, S3_PUBLIC_BASE_URL required")
		}
		return NewS3Uploader(ctx, S3Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})

	default:
		return nil, fmt.Errorf("unknown UPLOAD_DRIVER: %s", cfg.Driver)
	}
}

type disabledUploader struct {
	reason error
}

// Disabled returns an Uploader that rejects every upload with reason
func Disabled(reason error) Uploader {
	return disabledUploader{reason: reason}
}

func (d disabledUploader) Upload(ctx context.Context, r io.Reader, f File) (string, error) {
	return "", fmt.Errorf("%w: uploads disabled: %v", ErrUploadFailed, d.reason)
}
