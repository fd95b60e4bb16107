package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3 or S3-compatible (MinIO) settings
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // empty for AWS, e.g. "http://localhost:9000" for MinIO
	// Static keys; when empty the default AWS credential chain is used
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ObjectPutter is the subset of *s3.Client the uploader needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies finished exports to a bucket
type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// UploadInput describes one export to upload
type UploadInput struct {
	Shortcode   string
	RunID       string
	Extension   string
	ContentType string
	Data        []byte
}

// UploadOutput reports where an export was stored
type UploadOutput struct {
	Bucket     string
	Key        string
	Size       int64
	UploadedAt time.Time
}

// NewS3Uploader creates an uploader from configuration
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3UploaderWithClient creates an uploader over an existing client
func NewS3UploaderWithClient(client ObjectPutter, bucket, prefix string) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// ObjectKey builds {prefix}/{YYYY/MM/DD}/{shortcode}-{runID}.{ext}
func ObjectKey(prefix, shortcode, runID, ext string, at time.Time) string {
	name := fmt.Sprintf("%s-%s.%s", shortcode, runID, strings.TrimPrefix(ext, "."))
	return path.Join(strings.Trim(prefix, "/"), at.UTC().Format("2006/01/02"), name)
}

// ContentType returns the MIME type for an export extension
func ContentType(ext string) string {
	switch strings.TrimPrefix(ext, ".") {
	case "json":
		return "application/json"
	case "csv":
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Upload stores one export
func (u *S3Uploader) Upload(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	if in.Shortcode == "" || in.RunID == "" {
		return nil, fmt.Errorf("shortcode and run id are required")
	}

	now := u.now()
	key := ObjectKey(u.prefix, in.Shortcode, in.RunID, in.Extension, now)
	contentType := in.ContentType
	if contentType == "" {
		contentType = ContentType(in.Extension)
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(in.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(in.Data))),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	return &UploadOutput{
		Bucket:     u.bucket,
		Key:        key,
		Size:       int64(len(in.Data)),
		UploadedAt: now,
	}, nil
}
