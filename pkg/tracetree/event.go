package tracetree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind is the value of the "event" discriminant.
type EventKind string

const (
	EventTraceStart EventKind = "trace_start"
	EventSpanStart  EventKind = "span_start"
	EventSpanEnd    EventKind = "span_end"
	EventTraceEnd   EventKind = "trace_end"
	EventUnknown    EventKind = ""
)

// TraceDescriptor is the "trace" object of trace_start and trace_end.
type TraceDescriptor struct {
	Object       string         `json:"object,omitempty"`
	ID           string         `json:"id"`
	WorkflowName string         `json:"workflow_name,omitempty"`
	GroupID      *string        `json:"group_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SpanDescriptor is the "span" object of span_start.
type SpanDescriptor struct {
	Object    string          `json:"object,omitempty"`
	ID        string          `json:"id"`
	TraceID   string          `json:"trace_id,omitempty"`
	ParentID  string          `json:"parent_id,omitempty"`
	StartedAt string          `json:"started_at,omitempty"`
	EndedAt   string          `json:"ended_at,omitempty"`
	SpanData  SpanData        `json:"span_data"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// UnmarshalJSON requires a string id. The other fields are read leniently:
// a value of an unexpected JSON type is kept as its JSON text, and span_data
// of any shape classifies as unknown instead of failing the span.
func (sd *SpanDescriptor) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*sd = SpanDescriptor{SpanData: SpanData{Kind: KindOther}}
	if raw := present(fields["id"]); raw != nil {
		if err := json.Unmarshal(raw, &sd.ID); err != nil {
			return fmt.Errorf("id: %w", err)
		}
	}
	sd.Object = looseString(fields["object"])
	sd.TraceID = looseString(fields["trace_id"])
	sd.ParentID = looseString(fields["parent_id"])
	sd.StartedAt = looseString(fields["started_at"])
	sd.EndedAt = looseString(fields["ended_at"])
	if raw := present(fields["span_data"]); raw != nil {
		if err := json.Unmarshal(raw, &sd.SpanData); err != nil {
			return err
		}
	}
	sd.Error = fields["error"]
	return nil
}

// looseString is the string value of raw, or its JSON text for other types.
// Absent values are "".
func looseString(raw json.RawMessage) string {
	raw = present(raw)
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// EndPayload holds the fields of a span_end event that merge into a span.
type EndPayload struct {
	Prompt     json.RawMessage
	Completion json.RawMessage
	Input      json.RawMessage
	Output     json.RawMessage
	Tool       json.RawMessage
	Error      json.RawMessage
}

// Event is a classified record. Which fields are set depends on Kind.
type Event struct {
	Kind      EventKind
	Line      int
	Timestamp Timestamp

	// trace_start, trace_end
	Trace *TraceDescriptor

	// span_start
	Span *SpanDescriptor

	// span_end
	SpanID   string
	SpanType string
	Payload  EndPayload
	Extra    map[string]json.RawMessage
}

// EventError records a known-kind event whose payload could not be used.
type EventError struct {
	Line int       `json:"line"`
	Kind EventKind `json:"kind"`
	Err  error     `json:"-"`
}

func (e *EventError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Kind, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// MarshalJSON includes the error text.
func (e EventError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Line  int       `json:"line"`
		Kind  EventKind `json:"kind"`
		Error string    `json:"error"`
	}{e.Line, e.Kind, msg})
}

var (
	errMissingTrace = errors.New("missing trace descriptor")
	errMissingSpan  = errors.New("missing span descriptor")
	errMissingID    = errors.New("missing id")
)

// endEventFields are consumed by Classify and never land in Event.Extra.
var endEventFields = map[string]bool{
	"event": true, "timestamp": true, "span_id": true, "span_type": true,
	"prompt": true, "completion": true, "input": true, "output": true,
	"tool": true, "error": true,
}

// Classify decodes rec by its "event" discriminant. Unknown kinds return an
// Event with Kind EventUnknown and no error.
func Classify(rec Record) (Event, error) {
	ev := Event{
		Kind:      EventKind(rec.String("event")),
		Line:      rec.Line,
		Timestamp: ParseTimestamp(rec.String("timestamp")),
	}

	switch ev.Kind {
	case EventTraceStart, EventTraceEnd:
		var td TraceDescriptor
		if err := decodeField(rec, "trace", &td, errMissingTrace); err != nil {
			return ev, err
		}
		if td.ID == "" {
			return ev, fmt.Errorf("trace: %w", errMissingID)
		}
		ev.Trace = &td

	case EventSpanStart:
		var sd SpanDescriptor
		if err := decodeField(rec, "span", &sd, errMissingSpan); err != nil {
			return ev, err
		}
		if sd.ID == "" {
			return ev, fmt.Errorf("span: %w", errMissingID)
		}
		sd.Error = present(sd.Error)
		ev.Span = &sd

	case EventSpanEnd:
		ev.SpanID = rec.String("span_id")
		ev.SpanType = rec.String("span_type")
		ev.Payload = EndPayload{
			Prompt:     present(rec.Fields["prompt"]),
			Completion: present(rec.Fields["completion"]),
			Input:      present(rec.Fields["input"]),
			Output:     present(rec.Fields["output"]),
			Tool:       present(rec.Fields["tool"]),
			Error:      present(rec.Fields["error"]),
		}
		for k, v := range rec.Fields {
			if endEventFields[k] {
				continue
			}
			if ev.Extra == nil {
				ev.Extra = make(map[string]json.RawMessage)
			}
			ev.Extra[k] = v
		}

	default:
		ev.Kind = EventUnknown
	}

	return ev, nil
}

func decodeField(rec Record, key string, v any, missing error) error {
	raw := present(rec.Fields[key])
	if raw == nil {
		return missing
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// present returns nil for values that count as absent: missing, null and
// the empty string.
func present(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil
	}
	return raw
}
