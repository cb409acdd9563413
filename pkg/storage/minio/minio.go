package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/williamokano/s3_connector/pkg/storage"
)

// Backend talks to any S3-compatible store through minio-go
type Backend struct {
	name   string
	bucket string
	client *minio.Client
}

func init() {
	storage.RegisterBackend("minio", func(ctx context.Context, cfg storage.Config) (storage.Gateway, error) {
		return New(cfg)
	})
}

// New creates a minio-go gateway. The endpoint may be given with or without
// a scheme; "http://" disables TLS.
func New(cfg storage.Config) (*Backend, error) {
	endpoint := cfg.StringOption("endpoint")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: minio backend requires an endpoint", storage.ErrInvalidConfig)
	}

	host, secure, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidConfig, err)
	}

	region := cfg.StringOption("region")
	if region == "" {
		region = "us-east-1"
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StringOption("access_key_id"), cfg.StringOption("secret_access_key"), ""),
		Secure: secure,
		Region: region,
	}

	// Path-style unless explicitly disabled, matching the s3 backend with a custom endpoint
	opts.BucketLookup = minio.BucketLookupPath
	if v, ok := cfg.Options["force_path_style"].(bool); ok && !v {
		opts.BucketLookup = minio.BucketLookupAuto
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", fmt.Errorf("%w: %w", storage.ErrInvalidConfig, err))
	}

	return &Backend{name: cfg.Name, bucket: cfg.Bucket, client: client}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "minio" }

// Put uploads an object
func (b *Backend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return storage.WrapError(b.name, "upload", storage.Transport(err))
	}
	return nil
}

// Get downloads an object. GetObject is lazy, so errors surface on the first read.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, b.classify("get", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.classify("read", key, err)
	}
	return data, nil
}

// Close is a no-op for minio
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) classify(operation, key string, err error) error {
	if isNotFound(err) {
		return storage.NotFound(key, err)
	}
	return storage.WrapError(b.name, operation, storage.Transport(err))
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
