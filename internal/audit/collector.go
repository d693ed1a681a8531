// Package audit summarizes reconstructed traces: counts, tool usage,
// timing and a Mermaid view of the span hierarchy.
package audit

import (
	"sort"
	"time"

	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// slowestCount is how many spans Report.Slowest keeps.
const slowestCount = 3

// Collect builds a Report from a reconstruction
func Collect(res *tracetree.Result) *Report {
	report := &Report{
		Summary: Summary{
			ByKind:   make(map[tracetree.SpanKind]int),
			ByStatus: make(map[tracetree.Status]int),
		},
		Events:    make([]TraceEvent, 0),
		Path:      make([]tracetree.SpanKind, 0),
		ToolCalls: make([]string, 0),
		Models:    make([]string, 0),
	}

	timings := make(map[string]*timing)
	seenModel := make(map[string]bool)

	res.Walk(func(span *tracetree.Span, depth int) bool {
		event := spanToEvent(span, depth)
		report.Events = append(report.Events, event)
		report.Path = append(report.Path, event.Kind)

		s := &report.Summary
		s.TotalSpans++
		s.ByKind[event.Kind]++
		s.ByStatus[event.Status]++
		if event.HasContent {
			s.HasDetailedData = true
		}
		if span.MatchedBy == tracetree.MatchHeuristic {
			s.HeuristicMatch++
		}

		switch event.Kind {
		case tracetree.KindFunction:
			s.ToolCallCount++
			report.ToolCalls = append(report.ToolCalls, ToolName(span))
		case tracetree.KindGeneration:
			s.LLMCallCount++
		}
		if event.Model != "" && !seenModel[event.Model] {
			seenModel[event.Model] = true
			report.Models = append(report.Models, event.Model)
		}
		if event.Status == tracetree.StatusError {
			report.Errors = append(report.Errors, event)
		}

		t, ok := timings[span.TraceID]
		if !ok {
			t = &timing{}
			timings[span.TraceID] = t
		}
		t.add(span)
		return true
	})

	report.Traces = traceTimings(res, timings)
	report.Slowest = slowest(report.Events, slowestCount)
	return report
}

// ToolName is the tool a function span called: the end event's tool, else
// the function name.
func ToolName(span *tracetree.Span) string {
	if span.Tool != "" {
		return span.Tool
	}
	return render.DisplayName(span)
}

// ToolCalls lists tool names in depth-first order.
func ToolCalls(res *tracetree.Result) []string {
	var out []string
	res.Walk(func(span *tracetree.Span, _ int) bool {
		if span.SpanData.Kind == tracetree.KindFunction {
			out = append(out, ToolName(span))
		}
		return true
	})
	return out
}

func spanToEvent(span *tracetree.Span, depth int) TraceEvent {
	event := TraceEvent{
		SpanID:     span.ID,
		SpanName:   render.DisplayName(span),
		Kind:       span.SpanData.Kind,
		Status:     span.Status,
		Depth:      depth,
		ParentID:   span.ParentID,
		TraceID:    span.TraceID,
		Start:      span.Start.Raw,
		DurationMs: millis(span.Duration),
		Tool:       span.Tool,
		Model:      span.SpanData.Model(),
		HasContent: len(span.Prompt) > 0 || len(span.Completion) > 0 ||
			len(span.Input) > 0 || len(span.Output) > 0,
	}
	if event.Kind == "" {
		event.Kind = tracetree.KindOther
	}
	return event
}

func millis(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	ms := float64(*d) / float64(time.Millisecond)
	return &ms
}

type timing struct {
	spans      int
	start, end tracetree.Timestamp
}

func (t *timing) add(span *tracetree.Span) {
	t.spans++
	if span.Start.Valid() && (!t.start.Valid() || span.Start.Time.Before(t.start.Time)) {
		t.start = span.Start
	}
	if span.End != nil && span.End.Valid() && (!t.end.Valid() || span.End.Time.After(t.end.Time)) {
		t.end = *span.End
	}
}

func traceTimings(res *tracetree.Result, timings map[string]*timing) []TraceTiming {
	out := make([]TraceTiming, 0, len(res.Traces))
	emit := func(id, workflow string) {
		tt := TraceTiming{TraceID: id, WorkflowName: workflow}
		if t, ok := timings[id]; ok {
			tt.SpanCount = t.spans
			tt.Start = t.start.Raw
			tt.End = t.end.Raw
			if d, ok := t.end.Sub(t.start); ok {
				tt.WallTimeMs = millis(&d)
			}
		}
		out = append(out, tt)
	}

	known := make(map[string]bool)
	for _, tr := range res.Traces {
		known[tr.ID] = true
		emit(tr.ID, tr.WorkflowName)
	}
	// Spans whose trace never started still get a row, in id order.
	var rest []string
	for id := range timings {
		if !known[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		emit(id, "")
	}
	return out
}

func slowest(events []TraceEvent, n int) []TraceEvent {
	var timed []TraceEvent
	for _, e := range events {
		if e.DurationMs != nil {
			timed = append(timed, e)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return *timed[i].DurationMs > *timed[j].DurationMs
	})
	if len(timed) > n {
		timed = timed[:n]
	}
	return timed
}
