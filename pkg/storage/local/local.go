package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/williamokano/s3_connector/pkg/storage"
)

// Backend stores objects as files under {path}/{bucket}/{key}
type Backend struct {
	name     string
	basePath string
}

func init() {
	storage.RegisterBackend("local", func(ctx context.Context, cfg storage.Config) (storage.Gateway, error) {
		return New(cfg)
	})
}

// New creates a new local filesystem gateway
func New(cfg storage.Config) (*Backend, error) {
	root := cfg.StringOption("path")
	if root == "" {
		return nil, fmt.Errorf("%w: missing required option: path", storage.ErrInvalidConfig)
	}

	basePath := filepath.Join(root, cfg.Bucket)

	// Ensure directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Backend{
		name:     cfg.Name,
		basePath: basePath,
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "local" }

// Put writes an object atomically by renaming a temp file into place.
// The content type is not persisted.
func (b *Backend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	destFullPath, err := b.resolve(key)
	if err != nil {
		return err
	}

	// Ensure destination directory exists
	destDir := filepath.Dir(destFullPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return storage.WrapError(b.name, "write", storage.Transport(err))
	}

	tmp, err := os.CreateTemp(destDir, ".upload-*")
	if err != nil {
		return storage.WrapError(b.name, "write", storage.Transport(err))
	}

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name()) // Clean up partial file
		return storage.WrapError(b.name, "write", storage.Transport(err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return storage.WrapError(b.name, "write", storage.Transport(err))
	}

	if err := os.Rename(tmp.Name(), destFullPath); err != nil {
		os.Remove(tmp.Name())
		return storage.WrapError(b.name, "write", storage.Transport(err))
	}

	return nil
}

// Get reads an object
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := b.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NotFound(key, nil)
		}
		return nil, storage.WrapError(b.name, "read", storage.Transport(err))
	}
	return data, nil
}

// Close is a no-op for local backend
func (b *Backend) Close() error {
	return nil
}

// resolve maps key to a path inside basePath
func (b *Backend) resolve(key string) (string, error) {
	fullPath := filepath.Join(b.basePath, filepath.FromSlash(key))

	rel, err := filepath.Rel(b.basePath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the bucket directory", storage.ErrInvalidKey, key)
	}
	return fullPath, nil
}
