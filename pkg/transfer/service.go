package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/keys"
	"github.com/williamokano/s3_connector/pkg/storage"
)

// Opener builds the gateway a Service talks to
type Opener func(ctx context.Context) (storage.Gateway, error)

// FactoryOpener opens the backend described by cfg through the registry
func FactoryOpener(cfg storage.Config) Opener {
	factory := storage.NewFactory()
	return func(ctx context.Context) (storage.Gateway, error) {
		return factory.Create(ctx, cfg)
	}
}

// StaticOpener always returns gw
func StaticOpener(gw storage.Gateway) Opener {
	return func(context.Context) (storage.Gateway, error) {
		return gw, nil
	}
}

// UploadResult is the address of the last object written by Upload
type UploadResult struct {
	URL string
	Key string
}

// LoadResult is a decoded object as a batch of one frame and one mask
type LoadResult struct {
	Images codec.Batch
	Masks  []codec.MaskPlane
	Key    string
}

// Service moves frames between the codec and one object store. The
// gateway is opened on first use and reused until Close. A failed open is
// retried on the next call.
type Service struct {
	resolver keys.Resolver
	open     Opener
	logger   zerolog.Logger

	mu sync.Mutex
	gw storage.Gateway
}

// New creates a transfer service
func New(resolver keys.Resolver, open Opener, logger zerolog.Logger) *Service {
	return &Service{
		resolver: resolver,
		open:     open,
		logger:   logger,
	}
}

// Resolver returns the key resolver the service builds keys with
func (s *Service) Resolver() keys.Resolver {
	return s.resolver
}

// Upload encodes and stores every frame of batch, in order, under keys
// derived from target. Frames are written one at a time; a failure leaves
// the earlier frames stored. The result names the last frame written.
func (s *Service) Upload(ctx context.Context, batch codec.Batch, target keys.Target) (UploadResult, error) {
	if len(batch) == 0 {
		return UploadResult{}, fmt.Errorf("%w: image batch is empty", keys.ErrInvalidArgument)
	}

	var result UploadResult
	for i, frame := range batch {
		key, err := s.resolver.UploadKey(target, len(batch), i)
		if err != nil {
			return UploadResult{}, err
		}

		body, err := codec.Encode(frame)
		if err != nil {
			return UploadResult{}, fmt.Errorf("frame %d: %w", i, err)
		}

		gw, err := s.gateway(ctx)
		if err != nil {
			return UploadResult{}, fmt.Errorf("failed to upload to S3: %w", err)
		}

		if err := gw.Put(ctx, key, body, codec.ContentType); err != nil {
			return UploadResult{}, fmt.Errorf("failed to upload to S3: %w", err)
		}

		result = UploadResult{URL: s.resolver.URL(key), Key: key}

		s.logger.Info().
			Str("key", key).
			Str("url", result.URL).
			Int("index", i).
			Int("batch_size", len(batch)).
			Str("target", target.Describe()).
			Msg("uploaded image")
	}

	return result, nil
}

// Load fetches and decodes the object addressed by target
func (s *Service) Load(ctx context.Context, target keys.Target) (LoadResult, error) {
	key, err := s.resolver.LoadKey(target)
	if err != nil {
		return LoadResult{}, err
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to load from S3: %w", err)
	}

	data, err := gw.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LoadResult{}, &NotFoundError{Key: key, Err: err}
		}
		return LoadResult{}, fmt.Errorf("failed to load from S3: %w", err)
	}

	frame, mask, err := codec.Decode(data)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	s.logger.Info().
		Str("key", key).
		Int("width", frame.Width).
		Int("height", frame.Height).
		Str("target", target.Describe()).
		Msg("loaded image")

	return LoadResult{
		Images: codec.Batch{frame},
		Masks:  []codec.MaskPlane{mask},
		Key:    key,
	}, nil
}

// Close releases the gateway if one was opened
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gw == nil {
		return nil
	}
	err := s.gw.Close()
	s.gw = nil
	return err
}

func (s *Service) gateway(ctx context.Context) (storage.Gateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gw != nil {
		return s.gw, nil
	}

	gw, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("backend", gw.Name()).
		Str("type", gw.Type()).
		Msg("opened storage gateway")

	s.gw = gw
	return gw, nil
}
