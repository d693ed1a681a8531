package tracetree

import (
	"bytes"
	"encoding/json"
)

// SpanKind classifies span_data.type.
type SpanKind string

const (
	KindAgent      SpanKind = "agent"
	KindGeneration SpanKind = "generation"
	KindFunction   SpanKind = "function"
	KindOther      SpanKind = "unknown"
)

// ClassifySpanType maps a raw span_data.type onto a SpanKind.
func ClassifySpanType(t string) SpanKind {
	switch SpanKind(t) {
	case KindAgent, KindGeneration, KindFunction:
		return SpanKind(t)
	default:
		return KindOther
	}
}

// AgentData is the payload of an agent span.
type AgentData struct {
	Name       string   `json:"name,omitempty"`
	Handoffs   []string `json:"handoffs,omitempty"`
	Tools      []string `json:"tools,omitempty"`
	OutputType string   `json:"output_type,omitempty"`
}

// GenerationData is the payload of a model generation span.
type GenerationData struct {
	Model       string          `json:"model,omitempty"`
	ModelConfig map[string]any  `json:"model_config,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Usage       json.RawMessage `json:"usage,omitempty"`
}

// FunctionData is the payload of a tool/function call span.
type FunctionData struct {
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
	MCPData json.RawMessage `json:"mcp_data,omitempty"`
}

// SpanData is a tagged union over the known span kinds. Exactly one of
// Agent, Generation or Function is set when Kind names it. Fields the
// variant does not know about end up in Extra.
type SpanData struct {
	Type string
	Kind SpanKind

	Agent      *AgentData
	Generation *GenerationData
	Function   *FunctionData

	Extra map[string]json.RawMessage

	raw json.RawMessage
}

var (
	agentFields      = []string{"name", "handoffs", "tools", "output_type"}
	generationFields = []string{"model", "model_config", "input", "output", "usage"}
	functionFields   = []string{"name", "input", "output", "mcp_data"}
)

// UnmarshalJSON decodes the object and routes known fields into the variant.
func (d *SpanData) UnmarshalJSON(data []byte) error {
	*d = SpanData{Kind: KindOther}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	d.raw = append(json.RawMessage(nil), data...)

	// Anything but an object is kept verbatim as an unknown span.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	// A non-string type stays in Extra.
	if rawType, ok := fields["type"]; ok {
		if err := json.Unmarshal(rawType, &d.Type); err == nil {
			delete(fields, "type")
		}
	}
	d.Kind = ClassifySpanType(d.Type)

	var known []string
	var target any
	switch d.Kind {
	case KindAgent:
		d.Agent = &AgentData{}
		known, target = agentFields, d.Agent
	case KindGeneration:
		d.Generation = &GenerationData{}
		known, target = generationFields, d.Generation
	case KindFunction:
		d.Function = &FunctionData{}
		known, target = functionFields, d.Function
	}

	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			// Shape does not fit the variant; keep everything as extension
			// fields rather than rejecting the span.
			d.Kind = KindOther
			d.Agent, d.Generation, d.Function = nil, nil, nil
			known = nil
		}
		for _, k := range known {
			delete(fields, k)
		}
	}

	if len(fields) > 0 {
		d.Extra = fields
	}
	return nil
}

// MarshalJSON re-emits the original object.
func (d SpanData) MarshalJSON() ([]byte, error) {
	if d.raw != nil {
		return d.raw, nil
	}
	out := map[string]any{}
	if d.Type != "" {
		out["type"] = d.Type
	}
	for k, v := range d.Extra {
		out[k] = v
	}
	var variant any
	switch {
	case d.Agent != nil:
		variant = d.Agent
	case d.Generation != nil:
		variant = d.Generation
	case d.Function != nil:
		variant = d.Function
	}
	if variant != nil {
		b, err := json.Marshal(variant)
		if err != nil {
			return nil, err
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// Name returns the agent or function name, or an extension "name" field.
func (d SpanData) Name() string {
	switch {
	case d.Agent != nil:
		return d.Agent.Name
	case d.Function != nil:
		return d.Function.Name
	}
	return d.extraString("name")
}

// Model returns the generation model, or an extension "model" field.
func (d SpanData) Model() string {
	if d.Generation != nil {
		return d.Generation.Model
	}
	return d.extraString("model")
}

func (d SpanData) extraString(key string) string {
	raw, ok := d.Extra[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
