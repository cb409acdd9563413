package backblaze

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"

	"github.com/williamokano/s3_connector/pkg/storage"
)

type Backend struct {
	name   string
	client *b2.Client
	bucket *b2.Bucket
}

func init() {
	storage.RegisterBackend("backblaze", func(ctx context.Context, cfg storage.Config) (storage.Gateway, error) {
		return New(ctx, cfg)
	})
}

// New creates a new Backblaze B2 gateway
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	b2Cfg, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}

	// Create B2 client
	client, err := b2.NewClient(ctx, b2Cfg.AccountID, b2Cfg.ApplicationKey)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", storage.Transport(err))
	}

	// Get bucket
	bucket, err := client.Bucket(ctx, b2Cfg.BucketName)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "get bucket", storage.Transport(err))
	}

	return &Backend{
		name:   cfg.Name,
		client: client,
		bucket: bucket,
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "backblaze" }

// Put uploads an object to B2
func (b *Backend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	obj := b.bucket.Object(key)
	writer := obj.NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	if _, err := writer.Write(body); err != nil {
		writer.Close()
		return storage.WrapError(b.name, "upload", storage.Transport(err))
	}

	if err := writer.Close(); err != nil {
		return storage.WrapError(b.name, "upload", storage.Transport(err))
	}

	return nil
}

// Get downloads an object from B2
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	reader := b.bucket.Object(key).NewReader(ctx)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		if b2.IsNotExist(err) {
			return nil, storage.NotFound(key, err)
		}
		return nil, storage.WrapError(b.name, "get", storage.Transport(err))
	}

	return data, nil
}

// Close releases resources
func (b *Backend) Close() error {
	return nil
}

func parseConfig(cfg storage.Config) (*Config, error) {
	b2Cfg := &Config{
		AccountID:      cfg.StringOption("account_id"),
		ApplicationKey: cfg.StringOption("application_key"),
		BucketName:     cfg.Bucket,
	}

	if b2Cfg.AccountID == "" {
		return nil, fmt.Errorf("%w: missing required option: account_id", storage.ErrInvalidConfig)
	}
	if b2Cfg.ApplicationKey == "" {
		return nil, fmt.Errorf("%w: missing required option: application_key", storage.ErrInvalidConfig)
	}

	return b2Cfg, nil
}
