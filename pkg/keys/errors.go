package keys

import "errors"

var (
	// ErrConfiguration marks a required setting that is missing or unusable. It is never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidArgument marks a required per-call input that is empty or malformed.
	ErrInvalidArgument = errors.New("invalid argument")
)
