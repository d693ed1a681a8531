package tracetree

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endEvent(t *testing.T, raw string) Event {
	t.Helper()
	records, skipped := DecodeLines(raw)
	require.Empty(t, skipped)
	require.Len(t, records, 1)
	ev, err := Classify(records[0])
	require.NoError(t, err)
	return ev
}

func TestComplete_MergesPresentFieldsOnly(t *testing.T) {
	span := &Span{
		ID:     "a",
		Start:  ParseTimestamp("2025-01-01T00:00:00"),
		Status: StatusRunning,
		Input:  json.RawMessage(`"original input"`),
		Output: json.RawMessage(`"original output"`),
		Tool:   "search",
	}

	done := Complete(span, endEvent(t,
		`{"event":"span_end","timestamp":"2025-01-01T00:00:03","span_id":"a","input":null,"output":"","completion":{"role":"assistant"},"tool":{"name":"fetch"}}`))

	assert.JSONEq(t, `"original input"`, string(done.Input))
	assert.JSONEq(t, `"original output"`, string(done.Output))
	assert.JSONEq(t, `{"role":"assistant"}`, string(done.Completion))
	assert.Equal(t, `{"name":"fetch"}`, done.Tool)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 3*time.Second, *done.Duration)

	assert.Equal(t, StatusRunning, span.Status)
	assert.Nil(t, span.End)
	assert.Nil(t, span.Completion)
}

func TestClassify_SpanEndExtra(t *testing.T) {
	ev := endEvent(t, `{"event":"span_end","timestamp":"2025-01-01T00:00:03","span_type":"function","tool":"x","latency_ms":12}`)

	assert.Equal(t, EventSpanEnd, ev.Kind)
	assert.Equal(t, "", ev.SpanID)
	assert.Equal(t, "function", ev.SpanType)
	assert.Equal(t, map[string]json.RawMessage{"latency_ms": json.RawMessage(`12`)}, ev.Extra)
	assert.True(t, ev.Timestamp.Valid())
}
