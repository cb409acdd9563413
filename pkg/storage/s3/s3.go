package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/williamokano/s3_connector/pkg/storage"
)

// objectAPI is the subset of *s3.Client used by the gateway, so tests can
// inject a fake client.
type objectAPI interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Backend struct {
	name     string
	bucket   string
	client   objectAPI
	uploader *manager.Uploader
}

func init() {
	storage.RegisterBackend("s3", func(ctx context.Context, cfg storage.Config) (storage.Gateway, error) {
		return New(ctx, cfg)
	})
}

// New creates a new S3 gateway
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	s3Cfg := parseConfig(cfg)

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3Cfg.Region),
	}
	if s3Cfg.AccessKeyID != "" || s3Cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3Cfg.AccessKeyID,
				s3Cfg.SecretAccessKey,
				"",
			),
		))
	}

	// Build AWS config
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", fmt.Errorf("%w: %w", storage.ErrInvalidConfig, err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.Endpoint)
		}
		o.UsePathStyle = s3Cfg.ForcePathStyle
	})

	return newWithClient(cfg.Name, s3Cfg.Bucket, client), nil
}

func newWithClient(name, bucket string, client objectAPI) *Backend {
	return &Backend{
		name:     name,
		bucket:   bucket,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "s3" }

// Put uploads an object to S3
func (b *Backend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return storage.WrapError(b.name, "upload", storage.Transport(err))
	}

	return nil
}

// Get downloads an object from S3
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NotFound(key, err)
		}
		return nil, storage.WrapError(b.name, "get", storage.Transport(err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, storage.WrapError(b.name, "read", storage.Transport(err))
	}

	return data, nil
}

// Close is a no-op for S3
func (b *Backend) Close() error {
	return nil
}

// Helper functions

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func parseConfig(cfg storage.Config) *Config {
	s3Cfg := &Config{
		Endpoint:        cfg.StringOption("endpoint"),
		Region:          cfg.StringOption("region"),
		Bucket:          cfg.Bucket,
		AccessKeyID:     cfg.StringOption("access_key_id"),
		SecretAccessKey: cfg.StringOption("secret_access_key"),
	}

	if s3Cfg.Region == "" {
		s3Cfg.Region = "us-east-1"
	}

	// Custom endpoints default to path-style addressing
	s3Cfg.ForcePathStyle = s3Cfg.Endpoint != ""
	if v, ok := cfg.Options["force_path_style"].(bool); ok {
		s3Cfg.ForcePathStyle = v
	}

	return s3Cfg
}
