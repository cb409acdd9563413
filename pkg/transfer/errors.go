package transfer

import "fmt"

// NotFoundError reports a load whose key does not exist in the store.
// It unwraps to the gateway error, so errors.Is(err, storage.ErrNotFound) holds.
type NotFoundError struct {
	Key string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("image not found in S3: %s", e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}
