package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrTransport     = errors.New("object store request failed")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidKey    = errors.New("invalid object key")
)

// NotFound marks err as a missing-object failure for key
func NotFound(key string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("%w: %s: %w", ErrNotFound, key, err)
}

// Transport marks err as a store failure, keeping the provider message
func Transport(err error) error {
	if errors.Is(err, ErrTransport) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// WrapError adds context to an error
func WrapError(backend, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, backend, err)
}
