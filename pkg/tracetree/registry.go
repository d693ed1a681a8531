package tracetree

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a span.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further end event may change the span.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// MatchMode records how an end event was correlated with its span.
type MatchMode string

const (
	MatchNone      MatchMode = "none"
	MatchExplicit  MatchMode = "explicit"
	MatchHeuristic MatchMode = "heuristic"
)

// DuplicatePolicy decides what a second span_start with a known id does.
type DuplicatePolicy string

const (
	// DuplicateReplace overwrites the entry and keeps its original position.
	DuplicateReplace DuplicatePolicy = "replace"
	// DuplicateKeepFirst ignores later starts.
	DuplicateKeepFirst DuplicatePolicy = "keep-first"
)

// ParseDuplicatePolicy accepts "replace" and "keep-first". Empty means replace.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateReplace:
		return DuplicateReplace, nil
	case DuplicateKeepFirst:
		return DuplicateKeepFirst, nil
	default:
		return "", fmt.Errorf("unknown duplicate span policy %q (want replace or keep-first)", s)
	}
}

// Trace is one workflow run.
type Trace struct {
	ID           string         `json:"id"`
	Object       string         `json:"object,omitempty"`
	WorkflowName string         `json:"workflow_name,omitempty"`
	GroupID      *string        `json:"group_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Start        Timestamp      `json:"start"`
	End          *Timestamp     `json:"end,omitempty"`
}

// Span is a reconstructed unit of work.
type Span struct {
	ID        string   `json:"id"`
	TraceID   string   `json:"trace_id,omitempty"`
	ParentID  string   `json:"parent_id,omitempty"`
	Object    string   `json:"object,omitempty"`
	StartedAt string   `json:"started_at,omitempty"`
	EndedAt   string   `json:"ended_at,omitempty"`
	SpanData  SpanData `json:"span_data"`

	Start    Timestamp      `json:"start"`
	End      *Timestamp     `json:"end"`
	Duration *time.Duration `json:"-"`
	Status   Status         `json:"status"`

	Prompt     json.RawMessage `json:"prompt,omitempty"`
	Completion json.RawMessage `json:"completion,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	Error      json.RawMessage `json:"error,omitempty"`

	MatchedBy MatchMode `json:"matched_by"`
	Children  []*Span   `json:"children,omitempty"`

	index int
}

// Index is the span's position in the order its start events arrived.
func (s *Span) Index() int {
	return s.index
}

// Running reports whether no end event has matched the span yet.
func (s *Span) Running() bool {
	return s.Status == StatusRunning
}

// Failed reports whether the span ended with an error.
func (s *Span) Failed() bool {
	return s.Status == StatusError
}

// MarshalJSON adds duration_ms, which is null while the span runs.
func (s Span) MarshalJSON() ([]byte, error) {
	type plain Span
	var ms *float64
	if s.Duration != nil {
		v := float64(*s.Duration) / float64(time.Millisecond)
		ms = &v
	}
	return json.Marshal(struct {
		plain
		DurationMS *float64 `json:"duration_ms"`
	}{plain(s), ms})
}

// registry is the insertion-ordered fold state of one reconstruction.
type registry struct {
	spans      map[string]*Span
	order      []*Span
	traces     map[string]*Trace
	traceOrder []*Trace
}

func newRegistry() *registry {
	return &registry{
		spans:  make(map[string]*Span),
		traces: make(map[string]*Trace),
	}
}

// putTrace inserts or overwrites the trace keyed by id.
func (r *registry) putTrace(ev Event) {
	td := ev.Trace
	if t, ok := r.traces[td.ID]; ok {
		t.Object = td.Object
		t.WorkflowName = td.WorkflowName
		t.GroupID = td.GroupID
		t.Metadata = td.Metadata
		t.Start = ev.Timestamp
		return
	}
	t := &Trace{
		ID:           td.ID,
		Object:       td.Object,
		WorkflowName: td.WorkflowName,
		GroupID:      td.GroupID,
		Metadata:     td.Metadata,
		Start:        ev.Timestamp,
	}
	r.traces[td.ID] = t
	r.traceOrder = append(r.traceOrder, t)
}

// endTrace records the end marker. It reports false for unknown traces.
func (r *registry) endTrace(ev Event) bool {
	t, ok := r.traces[ev.Trace.ID]
	if !ok {
		return false
	}
	end := ev.Timestamp
	t.End = &end
	return true
}

// startSpan registers a span. It reports whether the id was already known.
func (r *registry) startSpan(ev Event, policy DuplicatePolicy) bool {
	sd := *ev.Span
	if sd.SpanData.Kind == "" {
		sd.SpanData.Kind = ClassifySpanType(sd.SpanData.Type)
	}
	span := &Span{
		ID:        sd.ID,
		TraceID:   sd.TraceID,
		ParentID:  sd.ParentID,
		Object:    sd.Object,
		StartedAt: sd.StartedAt,
		EndedAt:   sd.EndedAt,
		SpanData:  sd.SpanData,
		Start:     ev.Timestamp,
		Status:    StatusRunning,
		Error:     sd.Error,
		MatchedBy: MatchNone,
	}

	prev, dup := r.spans[sd.ID]
	if !dup {
		span.index = len(r.order)
		r.spans[sd.ID] = span
		r.order = append(r.order, span)
		return false
	}
	if policy == DuplicateKeepFirst {
		return true
	}
	span.index = prev.index
	r.spans[sd.ID] = span
	r.order[prev.index] = span
	return true
}

// replace swaps in an updated span at the same position.
func (r *registry) replace(span *Span) {
	r.spans[span.ID] = span
	r.order[span.index] = span
}
