package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PutObjectAPI is the subset of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Region        string
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

// S3Uploader stores images in a bucket served from PublicBaseURL
type S3Uploader struct {
	client        PutObjectAPI
	bucket        string
	prefix        string
	publicBaseURL string
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

func NewS3UploaderWithClient(client PutObjectAPI, cfg S3Config) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

func (u *S3Uploader) objectKey(filename string) string {
	key := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}
	return key
}

func (u *S3Uploader) Upload(ctx context.Context, r io.Reader, f File) (string, error) {
	key := u.objectKey(f.Filename)

	in := &s3.PutObjectInput{
		Bucket: &u.bucket,
		Key:    &key,
		Body:   r,
	}
	if f.ContentType != "" {
		in.ContentType = &f.ContentType
	}

	if _, err := u.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return u.publicBaseURL + "/" + key, nil
}

func (u *S3Uploader) String() string { return fmt.Sprintf("s3(%s/%s)", u.bucket, u.prefix) }
