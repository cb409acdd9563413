package node

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

const (
	// NoJobID is returned when no lookup yields an id
	NoJobID = "No ID Found"

	// unknownJobID is a placeholder some hosts write before an id exists
	unknownJobID = "Unknown"
)

// ExecutionContext exposes host execution state to nodes
type ExecutionContext interface {
	// LastPromptID returns the id of the prompt the host is running, if any
	LastPromptID() (string, bool)
}

// PromptTracker is an ExecutionContext fed by the host bridge with the id
// of every prompt it executes
type PromptTracker struct {
	mu   sync.RWMutex
	last string
}

// NewPromptTracker creates an empty tracker
func NewPromptTracker() *PromptTracker {
	return &PromptTracker{}
}

// Observe records id as the current prompt. Empty ids are ignored.
func (p *PromptTracker) Observe(id string) {
	if id == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = id
}

func (p *PromptTracker) LastPromptID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.last != ""
}

// JobIDLookup returns a candidate job id, or "" when its source has none
type JobIDLookup func(in Values) string

// promptBatchID reads prompt.extra_data.batch_id
func promptBatchID(in Values) string {
	prompt, _ := in["prompt"].(map[string]interface{})
	extra, _ := prompt["extra_data"].(map[string]interface{})
	return stringify(extra["batch_id"])
}

// pngInfoPromptID reads extra_pnginfo.prompt_id
func pngInfoPromptID(in Values) string {
	info, _ := in["extra_pnginfo"].(map[string]interface{})
	return stringify(info["prompt_id"])
}

// executionPromptID reads the host's current prompt id
func executionPromptID(ec ExecutionContext) JobIDLookup {
	return func(Values) string {
		if ec == nil {
			return ""
		}
		id, _ := ec.LastPromptID()
		return id
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

type jobIDNode struct {
	def     Definition
	lookups []JobIDLookup
}

// NewGetJobID reports the current job id. Sources are tried in order:
// the prompt's extra_data.batch_id, the extra_pnginfo prompt_id, then
// the execution context.
func NewGetJobID(ec ExecutionContext) Node {
	return &jobIDNode{
		def: Definition{
			Name:        "GetJobID",
			DisplayName: "Get Job ID",
			Category:    Category,
			Description: "Output the id of the job being executed",
			Inputs:      []Port{},
			Hidden: []Port{
				{Name: "prompt", Type: TypePrompt},
				{Name: "extra_pnginfo", Type: TypeExtraPNGInfo},
			},
			Outputs:       []Port{{Name: "job_id", Type: TypeString}},
			AlwaysChanged: true,
		},
		lookups: []JobIDLookup{
			promptBatchID,
			pngInfoPromptID,
			executionPromptID(ec),
		},
	}
}

func (n *jobIDNode) Definition() Definition { return n.def }

func (n *jobIDNode) Execute(_ context.Context, in Values) (Values, error) {
	return Values{"job_id": n.resolve(in)}, nil
}

func (n *jobIDNode) resolve(in Values) string {
	for _, lookup := range n.lookups {
		if id := lookup(in); id != "" && id != unknownJobID {
			return id
		}
	}
	return NoJobID
}
