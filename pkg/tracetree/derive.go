package tracetree

import "encoding/json"

// Complete applies an end event to a span and returns the updated copy.
// The input span is not modified.
//
// Payload fields present on the event replace the span's values. Absent
// ones (missing, null or "") leave them untouched.
func Complete(span *Span, end Event) *Span {
	out := *span

	ts := end.Timestamp
	out.End = &ts
	out.Duration = nil
	if d, ok := ts.Sub(span.Start); ok {
		out.Duration = &d
	}

	p := end.Payload
	mergeRaw(&out.Prompt, p.Prompt)
	mergeRaw(&out.Completion, p.Completion)
	mergeRaw(&out.Input, p.Input)
	mergeRaw(&out.Output, p.Output)
	mergeRaw(&out.Error, p.Error)
	if p.Tool != nil {
		out.Tool = rawText(p.Tool)
	}

	if present(p.Error) != nil || present(span.Error) != nil {
		out.Status = StatusError
	} else {
		out.Status = StatusCompleted
	}
	return &out
}

func mergeRaw(dst *json.RawMessage, v json.RawMessage) {
	if v = present(v); v != nil {
		*dst = v
	}
}

// rawText returns the string value of v, or its JSON text when v is not a
// string.
func rawText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
