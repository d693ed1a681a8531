package audit

import (
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// TraceEvent is one span flattened for auditing
type TraceEvent struct {
	SpanID     string             `json:"span_id"`
	SpanName   string             `json:"span_name"`
	Kind       tracetree.SpanKind `json:"kind"`
	Status     tracetree.Status   `json:"status"`
	Depth      int                `json:"depth"`
	ParentID   string             `json:"parent_id,omitempty"`
	TraceID    string             `json:"trace_id,omitempty"`
	Start      string             `json:"start"`
	DurationMs *float64           `json:"duration_ms"`
	Tool       string             `json:"tool,omitempty"`
	Model      string             `json:"model,omitempty"`
	HasContent bool               `json:"has_content"` // prompt, completion, input or output captured
}

// TraceTiming is the wall time of one trace
type TraceTiming struct {
	TraceID      string   `json:"trace_id"`
	WorkflowName string   `json:"workflow_name,omitempty"`
	SpanCount    int      `json:"span_count"`
	Start        string   `json:"start,omitempty"`
	End          string   `json:"end,omitempty"`
	WallTimeMs   *float64 `json:"wall_time_ms"`
}

// Summary provides aggregate counts for a reconstruction
type Summary struct {
	TotalSpans      int                        `json:"total_spans"`
	ByKind          map[tracetree.SpanKind]int `json:"by_kind"`
	ByStatus        map[tracetree.Status]int   `json:"by_status"`
	ToolCallCount   int                        `json:"tool_call_count"`
	LLMCallCount    int                        `json:"llm_call_count"`
	HeuristicMatch  int                        `json:"heuristic_matches"`
	HasDetailedData bool                       `json:"has_detailed_data"`
}

// Report is the audit of one reconstruction
type Report struct {
	Summary   Summary              `json:"summary"`
	Traces    []TraceTiming        `json:"traces"`
	Events    []TraceEvent         `json:"events"`
	Path      []tracetree.SpanKind `json:"path"`
	ToolCalls []string             `json:"tool_calls"`
	Models    []string             `json:"models"`
	Slowest   []TraceEvent         `json:"slowest"`
	Errors    []TraceEvent         `json:"errors,omitempty"`
}
