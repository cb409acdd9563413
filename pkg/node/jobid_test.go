package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedContext struct {
	id string
}

func (f fixedContext) LastPromptID() (string, bool) { return f.id, f.id != "" }

func TestGetJobID(t *testing.T) {
	tests := []struct {
		name string
		ec   ExecutionContext
		in   Values
		want string
	}{
		{
			name: "batch_id_wins",
			ec:   fixedContext{id: "server"},
			in: Values{
				"prompt":        map[string]interface{}{"extra_data": map[string]interface{}{"batch_id": "batch-7"}},
				"extra_pnginfo": map[string]interface{}{"prompt_id": "png-3"},
			},
			want: "batch-7",
		},
		{
			name: "pnginfo_when_batch_id_empty",
			ec:   fixedContext{id: "server"},
			in: Values{
				"prompt":        map[string]interface{}{"extra_data": map[string]interface{}{"batch_id": ""}},
				"extra_pnginfo": map[string]interface{}{"prompt_id": "png-3"},
			},
			want: "png-3",
		},
		{
			name: "execution_context_when_metadata_missing",
			ec:   fixedContext{id: "server-9"},
			in:   Values{"prompt": map[string]interface{}{}},
			want: "server-9",
		},
		{
			name: "unknown_placeholder_is_skipped",
			ec:   fixedContext{id: "server-9"},
			in: Values{
				"prompt": map[string]interface{}{"extra_data": map[string]interface{}{"batch_id": "Unknown"}},
			},
			want: "server-9",
		},
		{
			name: "numeric_batch_id",
			in: Values{
				"prompt": map[string]interface{}{"extra_data": map[string]interface{}{"batch_id": float64(42)}},
			},
			want: "42",
		},
		{
			name: "sentinel_without_sources",
			ec:   fixedContext{},
			in:   Values{},
			want: NoJobID,
		},
		{
			name: "sentinel_with_nil_context",
			in:   Values{"prompt": nil, "extra_pnginfo": nil},
			want: NoJobID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewGetJobID(tt.ec)

			out, err := n.Execute(context.Background(), tt.in)

			require.NoError(t, err)
			assert.Equal(t, tt.want, out["job_id"])
		})
	}
}

func TestGetJobID_Definition(t *testing.T) {
	def := NewGetJobID(nil).Definition()

	assert.Equal(t, "GetJobID", def.Name)
	assert.Equal(t, "Get Job ID", def.DisplayName)
	assert.True(t, def.AlwaysChanged)
	assert.Empty(t, def.Inputs)
	assert.Equal(t, []string{"job_id"}, def.OutputNames())
}

func TestPromptTracker(t *testing.T) {
	p := NewPromptTracker()

	_, ok := p.LastPromptID()
	assert.False(t, ok)

	p.Observe("a")
	p.Observe("")
	id, ok := p.LastPromptID()
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	p.Observe("b")
	id, _ = p.LastPromptID()
	assert.Equal(t, "b", id)
}
