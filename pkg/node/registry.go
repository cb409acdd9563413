package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/keys"
)

// ErrUnknownNode is returned for a node name that is not registered
var ErrUnknownNode = errors.New("unknown node")

type entry struct {
	node      Node
	validator *validator
}

// Registry maps node names to nodes, in registration order
type Registry struct {
	entries map[string]entry
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Default registers the five S3 connector nodes
func Default(t Transferer, ec ExecutionContext) *Registry {
	r := NewRegistry()
	for _, n := range []Node{
		NewUploadImage(t),
		NewLoadImage(t),
		NewUploadImageFullPath(t),
		NewLoadImageFullPath(t),
		NewGetJobID(ec),
	} {
		// Built-in definitions always compile
		if err := r.Register(n); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds n, replacing any node with the same name
func (r *Registry) Register(n Node) error {
	def := n.Definition()
	v, err := newValidator(def)
	if err != nil {
		return err
	}

	if _, exists := r.entries[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.entries[def.Name] = entry{node: n, validator: v}
	return nil
}

// Get returns the node called name
func (r *Registry) Get(name string) (Node, bool) {
	e, ok := r.entries[name]
	return e.node, ok
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns every definition in registration order
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].node.Definition())
	}
	return defs
}

// DisplayNames maps node names to display names
func (r *Registry) DisplayNames() map[string]string {
	names := make(map[string]string, len(r.order))
	for _, name := range r.order {
		names[name] = r.entries[name].node.Definition().DisplayName
	}
	return names
}

// IsChanged reports whether the host must re-run name instead of reusing
// a cached result
func (r *Registry) IsChanged(name string) (bool, error) {
	e, ok := r.entries[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return e.node.Definition().AlwaysChanged, nil
}

// Execute validates in against the node's declared inputs and runs it
func (r *Registry) Execute(ctx context.Context, name string, in Values) (Values, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}

	if in == nil {
		in = Values{}
	}

	if err := checkImages(e.node.Definition(), in); err != nil {
		return nil, err
	}
	if err := e.validator.Validate(in); err != nil {
		return nil, err
	}

	return e.node.Execute(ctx, in)
}

func checkImages(def Definition, in Values) error {
	for _, p := range def.Inputs {
		if p.Type != TypeImage {
			continue
		}
		batch, ok := in[p.Name].(codec.Batch)
		if !ok {
			return fmt.Errorf("%w: %s: %s must be an IMAGE batch", keys.ErrInvalidArgument, def.Name, p.Name)
		}
		for i, f := range batch {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %s[%d]: %v", keys.ErrInvalidArgument, def.Name, p.Name, i, err)
			}
		}
	}
	return nil
}
