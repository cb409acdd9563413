package storage

import (
	"context"
	"fmt"
	"sort"
)

// GatewayConstructor is a function that creates a gateway instance
type GatewayConstructor func(ctx context.Context, cfg Config) (Gateway, error)

var gatewayRegistry = make(map[string]GatewayConstructor)

// RegisterBackend registers a gateway constructor for a backend type
func RegisterBackend(backendType string, constructor GatewayConstructor) {
	gatewayRegistry[backendType] = constructor
}

// RegisteredTypes returns the registered backend types, sorted
func RegisteredTypes() []string {
	types := make([]string, 0, len(gatewayRegistry))
	for t := range gatewayRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Factory creates gateways from configuration
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a gateway from config
func (f *Factory) Create(ctx context.Context, cfg Config) (Gateway, error) {
	constructor, ok := gatewayRegistry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend type: %s", ErrInvalidConfig, cfg.Type)
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: backend %s has no bucket", ErrInvalidConfig, cfg.Name)
	}

	gw, err := constructor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend %s: %w", cfg.Name, err)
	}
	return gw, nil
}
