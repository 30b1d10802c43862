package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectPutter is the subset of the minio client used by MinioSink.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioConfig holds connection settings for an S3-compatible store.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MinioSink uploads reports as objects named <prefix><name>.sql.
type MinioSink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewMinioSink creates a sink backed by a minio client.
func NewMinioSink(cfg MinioConfig) (*MinioSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewMinioSinkWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewMinioSinkWithClient creates a sink over an existing client.
func NewMinioSinkWithClient(client ObjectPutter, bucket, prefix string) *MinioSink {
	return &MinioSink{client: client, bucket: bucket, prefix: prefix}
}

// Write uploads the report, replacing any existing object of the same name.
func (s *MinioSink) Write(ctx context.Context, name string, report string) error {
	if err := validName(name); err != nil {
		return err
	}
	key := s.prefix + name + Extension
	_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(report), int64(len(report)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return fmt.Errorf("uploading report %s: %w", key, err)
	}
	return nil
}
