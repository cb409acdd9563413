package node

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/williamokano/s3_connector/pkg/keys"
)

// Bridge operations
const (
	OpDescribe  = "describe"
	OpExecute   = "execute"
	OpIsChanged = "is_changed"
)

// maxLineSize bounds one request line; IMAGE inputs travel inline
const maxLineSize = 256 << 20

// Request is one line read from the host
type Request struct {
	ID       string                     `json:"id"`
	Op       string                     `json:"op"`
	Node     string                     `json:"node,omitempty"`
	PromptID string                     `json:"prompt_id,omitempty"` // prompt the host is executing
	Inputs   map[string]json.RawMessage `json:"inputs,omitempty"`
	Hidden   map[string]json.RawMessage `json:"hidden,omitempty"`
}

// WireError is a failed request's error
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is one line written to the host
type Response struct {
	ID           string                 `json:"id"`
	OK           bool                   `json:"ok"`
	Outputs      map[string]interface{} `json:"outputs,omitempty"`
	Definitions  []Definition           `json:"definitions,omitempty"`
	DisplayNames map[string]string      `json:"display_names,omitempty"`
	Changed      *bool                  `json:"changed,omitempty"`
	Error        *WireError             `json:"error,omitempty"`
}

// Bridge serves a registry to a host process over JSON lines. Requests are
// handled one at a time, in order.
type Bridge struct {
	registry *Registry
	tracker  *PromptTracker
	logger   zerolog.Logger
}

// NewBridge creates a bridge. tracker, when not nil, is fed the prompt id
// of each execute request.
func NewBridge(registry *Registry, tracker *PromptTracker, logger zerolog.Logger) *Bridge {
	return &Bridge{
		registry: registry,
		tracker:  tracker,
		logger:   logger,
	}
}

// Serve reads requests from r until EOF or ctx is done, writing one
// response per request to w
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := b.handleLine(ctx, line)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response %s: %w", resp.ID, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

func (b *Bridge) handleLine(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return failure("", fmt.Errorf("%w: malformed request: %v", keys.ErrInvalidArgument, err))
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return b.Handle(ctx, req)
}

// Handle answers a single request
func (b *Bridge) Handle(ctx context.Context, req Request) (resp Response) {
	reqLog := b.logger.With().Str("request_id", req.ID).Str("op", req.Op).Str("node", req.Node).Logger()

	// A panicking node fails its request, not the process
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrNodePanic, r)
			reqLog.Error().Err(err).Msg("node panicked")
			resp = failure(req.ID, err)
		}
	}()

	switch req.Op {
	case OpDescribe:
		return Response{
			ID:           req.ID,
			OK:           true,
			Definitions:  b.registry.Definitions(),
			DisplayNames: b.registry.DisplayNames(),
		}

	case OpIsChanged:
		changed, err := b.registry.IsChanged(req.Node)
		if err != nil {
			return failure(req.ID, err)
		}
		return Response{ID: req.ID, OK: true, Changed: &changed}

	case OpExecute:
		outputs, err := b.execute(ctx, req)
		if err != nil {
			reqLog.Error().Err(err).Str("kind", ErrorKind(err)).Msg("node failed")
			return failure(req.ID, err)
		}
		reqLog.Debug().Msg("node executed")
		return Response{ID: req.ID, OK: true, Outputs: outputs}

	default:
		return failure(req.ID, fmt.Errorf("%w: unknown op %q", keys.ErrInvalidArgument, req.Op))
	}
}

func (b *Bridge) execute(ctx context.Context, req Request) (map[string]interface{}, error) {
	n, ok := b.registry.Get(req.Node)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, req.Node)
	}
	def := n.Definition()

	if b.tracker != nil {
		b.tracker.Observe(req.PromptID)
	}

	in, err := decodeInputs(def, req.Inputs)
	if err != nil {
		return nil, err
	}
	hidden, err := decodeInputs(def, req.Hidden)
	if err != nil {
		return nil, err
	}
	for k, v := range hidden {
		in[k] = v
	}

	out, err := b.registry.Execute(ctx, req.Node, in)
	if err != nil {
		return nil, err
	}

	return encodeOutputs(def, out)
}

func failure(id string, err error) Response {
	return Response{
		ID:    id,
		OK:    false,
		Error: &WireError{Kind: ErrorKind(err), Message: err.Error()},
	}
}
