package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// Attribute keys set on replayed spans.
const (
	AttrSpanID       = attribute.Key("agent.span.id")
	AttrSpanType     = attribute.Key("agent.span.type")
	AttrSpanName     = attribute.Key("agent.span.name")
	AttrSpanStatus   = attribute.Key("agent.span.status")
	AttrMatchedBy    = attribute.Key("agent.span.matched_by")
	AttrTraceID      = attribute.Key("agent.trace.id")
	AttrWorkflowName = attribute.Key("agent.workflow.name")
	AttrModel        = attribute.Key("gen_ai.request.model")
	AttrTool         = attribute.Key("agent.tool.name")
)

// Replay emits every span of res through tracer, depth-first, with the
// original start and end times. Children are started under their parent's
// context. Spans still running end at the latest timestamp in the run.
// It returns the number of spans emitted.
func Replay(ctx context.Context, tracer trace.Tracer, res *tracetree.Result) (int, error) {
	r := replayer{tracer: tracer, res: res, latest: latestTimestamp(res)}
	for _, root := range res.RootSpans {
		if err := r.emit(ctx, root); err != nil {
			return r.count, err
		}
	}
	return r.count, nil
}

type replayer struct {
	tracer trace.Tracer
	res    *tracetree.Result
	latest time.Time
	count  int
}

func (r *replayer) emit(ctx context.Context, span *tracetree.Span) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := r.latest
	if span.Start.Valid() {
		start = span.Start.Time
	}
	ctx, otelSpan := r.tracer.Start(ctx, render.DisplayName(span),
		trace.WithTimestamp(start),
		trace.WithSpanKind(spanKind(span.SpanData.Kind)),
		trace.WithAttributes(r.attributes(span)...),
	)
	r.count++

	for _, child := range span.Children {
		if err := r.emit(ctx, child); err != nil {
			otelSpan.End(trace.WithTimestamp(r.end(span, start)))
			return err
		}
	}

	switch span.Status {
	case tracetree.StatusError:
		otelSpan.SetStatus(codes.Error, errorText(span.Error))
	case tracetree.StatusCompleted:
		otelSpan.SetStatus(codes.Ok, "")
	}
	otelSpan.End(trace.WithTimestamp(r.end(span, start)))
	return nil
}

func (r *replayer) end(span *tracetree.Span, start time.Time) time.Time {
	if span.End == nil {
		return r.latest
	}
	if span.End.Valid() {
		return span.End.Time
	}
	return start
}

func (r *replayer) attributes(span *tracetree.Span) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrSpanID.String(span.ID),
		AttrSpanType.String(span.SpanData.Type),
		AttrSpanName.String(render.DisplayName(span)),
		AttrSpanStatus.String(string(span.Status)),
		AttrMatchedBy.String(string(span.MatchedBy)),
	}
	if span.TraceID != "" {
		attrs = append(attrs, AttrTraceID.String(span.TraceID))
		if t := r.res.TraceByID(span.TraceID); t != nil && t.WorkflowName != "" {
			attrs = append(attrs, AttrWorkflowName.String(t.WorkflowName))
		}
	}
	if model := span.SpanData.Model(); model != "" {
		attrs = append(attrs, AttrModel.String(model))
	}
	if span.Tool != "" {
		attrs = append(attrs, AttrTool.String(span.Tool))
	}
	return attrs
}

func spanKind(kind tracetree.SpanKind) trace.SpanKind {
	switch kind {
	case tracetree.KindGeneration, tracetree.KindFunction:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

// errorText is the error payload as a status description: a JSON string's
// value, a "message" field, or the raw JSON.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

func latestTimestamp(res *tracetree.Result) time.Time {
	var latest time.Time
	res.Walk(func(span *tracetree.Span, _ int) bool {
		if span.Start.Valid() && span.Start.Time.After(latest) {
			latest = span.Start.Time
		}
		if span.End != nil && span.End.Valid() && span.End.Time.After(latest) {
			latest = span.End.Time
		}
		return true
	})
	if latest.IsZero() {
		return time.Now()
	}
	return latest
}
