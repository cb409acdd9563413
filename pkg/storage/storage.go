package storage

import "context"

// Gateway is an object store holding encoded images under string keys.
// One gateway is bound to one bucket.
type Gateway interface {
	// Name returns a human-readable name for this gateway (e.g., "s3", "local_dev")
	Name() string

	// Type returns the backend type (s3, minio, local, backblaze, ssh)
	Type() string

	// Put stores body under key with the given content type, replacing any existing object
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get returns the object stored under key.
	// A missing key yields an error matching ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Close releases resources (connections, sessions)
	Close() error
}

// Config represents gateway configuration
type Config struct {
	Name    string                 `json:"name"`    // User-friendly name (e.g., "s3_primary")
	Type    string                 `json:"type"`    // Backend type: s3, minio, local, backblaze, ssh
	Bucket  string                 `json:"bucket"`  // Bucket (or top-level directory) holding the objects
	Options map[string]interface{} `json:"options"` // Backend-specific options
}

// StringOption returns options[key] when it is a string, or "" otherwise
func (c Config) StringOption(key string) string {
	v, _ := c.Options[key].(string)
	return v
}
