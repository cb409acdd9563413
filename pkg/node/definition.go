package node

// Category groups every node of this pack in the host's node menu
const Category = "S3 Connector"

// PortType is the host type of an input or output
type PortType string

const (
	TypeImage        PortType = "IMAGE"
	TypeMask         PortType = "MASK"
	TypeString       PortType = "STRING"
	TypePrompt       PortType = "PROMPT"
	TypeExtraPNGInfo PortType = "EXTRA_PNGINFO"
)

// Port declares one named input or output
type Port struct {
	Name    string   `json:"name"`
	Type    PortType `json:"type"`
	Default string   `json:"default,omitempty"` // STRING inputs only
}

// Definition is what a node declares to the host
type Definition struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Category      string `json:"category"`
	Description   string `json:"description,omitempty"`
	Inputs        []Port `json:"inputs"`
	Hidden        []Port `json:"hidden,omitempty"`
	Outputs       []Port `json:"outputs"`
	OutputNode    bool   `json:"output_node"`    // the host runs it even when nothing consumes its outputs
	AlwaysChanged bool   `json:"always_changed"` // the host must never reuse a cached result
}

// Input returns the required or hidden input called name
func (d Definition) Input(name string) (Port, bool) {
	for _, p := range d.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range d.Hidden {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// OutputNames returns the output names in declaration order
func (d Definition) OutputNames() []string {
	names := make([]string, len(d.Outputs))
	for i, p := range d.Outputs {
		names[i] = p.Name
	}
	return names
}
