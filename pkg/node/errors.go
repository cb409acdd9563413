package node

import (
	"errors"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/keys"
	"github.com/williamokano/s3_connector/pkg/storage"
)

// ErrNodePanic wraps a panic recovered while answering a request
var ErrNodePanic = errors.New("node panicked")

// Error kinds reported to the host
const (
	KindConfiguration   = "configuration"
	KindInvalidArgument = "invalid_argument"
	KindNotFound        = "not_found"
	KindTransport       = "transport"
	KindDecode          = "decode"
	KindInternal        = "internal"
)

// ErrorKind classifies err for the host
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, keys.ErrConfiguration), errors.Is(err, storage.ErrInvalidConfig):
		return KindConfiguration
	case errors.Is(err, keys.ErrInvalidArgument), errors.Is(err, ErrUnknownNode),
		errors.Is(err, codec.ErrInvalidFrame), errors.Is(err, storage.ErrInvalidKey):
		return KindInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	case errors.Is(err, storage.ErrTransport):
		return KindTransport
	case errors.Is(err, codec.ErrDecode):
		return KindDecode
	default:
		return KindInternal
	}
}
