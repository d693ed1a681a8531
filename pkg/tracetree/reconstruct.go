// Package tracetree rebuilds span trees from agent execution logs.
//
// A log is newline-delimited JSON where each object carries an "event"
// discriminant: trace_start, span_start, span_end or trace_end. Records are
// folded in input order into a registry of spans, end events are correlated
// with the span they close, and the result is linked into a forest by
// parent id. Reconstruction never fails on bad input; what it could not use
// is reported in Diagnostics.
package tracetree

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Option configures a reconstruction.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	policy DuplicatePolicy
}

func newOptions(opts []Option) options {
	o := options{
		logger: zerolog.Nop(),
		policy: DuplicateReplace,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for skipped lines and degraded matches.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDuplicatePolicy sets how repeated span_start ids are handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *options) {
		if p != "" {
			o.policy = p
		}
	}
}

// Diagnostics reports everything reconstruction skipped or repaired.
type Diagnostics struct {
	Lines            int          `json:"lines"`
	Records          int          `json:"records"`
	SkippedLines     []LineError  `json:"skipped_lines,omitempty"`
	EventErrors      []EventError `json:"event_errors,omitempty"`
	UnknownEvents    int          `json:"unknown_events"`
	DuplicateStarts  int          `json:"duplicate_starts"`
	DroppedEnds      int          `json:"dropped_ends"`
	RepeatedEnds     int          `json:"repeated_ends"`
	HeuristicMatches int          `json:"heuristic_matches"`
	ExplicitMatches  int          `json:"explicit_matches"`
	OrphansPromoted  int          `json:"orphans_promoted"`
	CyclesBroken     int          `json:"cycles_broken"`
}

// Clean reports whether nothing was skipped, dropped or repaired.
func (d Diagnostics) Clean() bool {
	return len(d.SkippedLines) == 0 && len(d.EventErrors) == 0 &&
		d.DuplicateStarts == 0 && d.DroppedEnds == 0 && d.RepeatedEnds == 0 &&
		d.OrphansPromoted == 0 && d.CyclesBroken == 0
}

// Result is the outcome of one reconstruction.
type Result struct {
	Traces      []*Trace    `json:"traces"`
	RootSpans   []*Span     `json:"spans"`
	Diagnostics Diagnostics `json:"diagnostics"`

	index map[string]*Span
}

// Reconstruct folds decoded records into traces and a span forest.
func Reconstruct(records []Record, opts ...Option) *Result {
	o := newOptions(opts)
	log := o.logger
	reg := newRegistry()
	diag := Diagnostics{Lines: len(records), Records: len(records)}

	for _, rec := range records {
		ev, err := Classify(rec)
		if err != nil {
			log.Warn().Int("line", rec.Line).Str("event", string(ev.Kind)).Err(err).Msg("skipping unusable event")
			diag.EventErrors = append(diag.EventErrors, EventError{Line: rec.Line, Kind: ev.Kind, Err: err})
			continue
		}

		switch ev.Kind {
		case EventTraceStart:
			reg.putTrace(ev)

		case EventTraceEnd:
			if !reg.endTrace(ev) {
				log.Debug().Int("line", ev.Line).Str("trace_id", ev.Trace.ID).Msg("trace end for unknown trace")
			}

		case EventSpanStart:
			if reg.startSpan(ev, o.policy) {
				diag.DuplicateStarts++
				log.Warn().
					Int("line", ev.Line).
					Str("span_id", ev.Span.ID).
					Str("policy", string(o.policy)).
					Msg("duplicate span start")
			}

		case EventSpanEnd:
			applyEnd(reg, ev, &diag, log)

		default:
			diag.UnknownEvents++
		}
	}

	roots, stats := BuildForest(reg.order)
	diag.OrphansPromoted = stats.OrphansPromoted
	diag.CyclesBroken = stats.CyclesBroken
	if stats.CyclesBroken > 0 {
		log.Warn().Int("cycles", stats.CyclesBroken).Msg("broke parent cycles")
	}

	res := &Result{
		Traces:      reg.traceOrder,
		RootSpans:   roots,
		Diagnostics: diag,
	}
	res.index = make(map[string]*Span, len(reg.order))
	res.Walk(func(s *Span, _ int) bool {
		res.index[s.ID] = s
		return true
	})
	return res
}

func applyEnd(reg *registry, ev Event, diag *Diagnostics, log zerolog.Logger) {
	span, mode := reg.resolveEnd(ev)
	if span == nil {
		diag.DroppedEnds++
		log.Debug().
			Int("line", ev.Line).
			Str("span_id", ev.SpanID).
			Str("span_type", ev.SpanType).
			Msg("end event matched no span")
		return
	}
	if span.Status.Terminal() {
		diag.RepeatedEnds++
		log.Debug().Int("line", ev.Line).Str("span_id", span.ID).Msg("ignoring end for finished span")
		return
	}

	done := Complete(span, ev)
	done.MatchedBy = mode
	reg.replace(done)

	switch mode {
	case MatchExplicit:
		diag.ExplicitMatches++
	case MatchHeuristic:
		diag.HeuristicMatches++
		log.Debug().
			Int("line", ev.Line).
			Str("span_id", span.ID).
			Str("span_type", ev.SpanType).
			Str("correlation", "heuristic").
			Msg("matched end event by type")
	}
}

// ReconstructText decodes JSONL text and reconstructs it. It returns
// ErrNoValidRecords when no line decodes.
func ReconstructText(text string, opts ...Option) (*Result, error) {
	records, skipped := DecodeLines(text, opts...)
	return finish(records, skipped, opts)
}

// ReconstructReader is ReconstructText over a reader.
func ReconstructReader(r io.Reader, opts ...Option) (*Result, error) {
	records, skipped, err := DecodeReader(r, opts...)
	if err != nil {
		return nil, err
	}
	return finish(records, skipped, opts)
}

func finish(records []Record, skipped []LineError, opts []Option) (*Result, error) {
	if len(records) == 0 {
		if len(skipped) > 0 {
			return nil, fmt.Errorf("%w (%d malformed lines)", ErrNoValidRecords, len(skipped))
		}
		return nil, ErrNoValidRecords
	}
	res := Reconstruct(records, opts...)
	res.Diagnostics.Lines = len(records) + len(skipped)
	res.Diagnostics.SkippedLines = skipped
	return res, nil
}

// Walk visits spans depth-first in tree order. Returning false from fn
// skips that span's children.
func (r *Result) Walk(fn func(span *Span, depth int) bool) {
	var visit func(s *Span, depth int)
	visit = func(s *Span, depth int) {
		if !fn(s, depth) {
			return
		}
		for _, c := range s.Children {
			visit(c, depth+1)
		}
	}
	for _, root := range r.RootSpans {
		visit(root, 0)
	}
}

// Find returns the span with the given id, or nil.
func (r *Result) Find(id string) *Span {
	if r.index != nil {
		return r.index[id]
	}
	var found *Span
	r.Walk(func(s *Span, _ int) bool {
		if s.ID == id {
			found = s
		}
		return found == nil
	})
	return found
}

// SpanCount is the number of spans in the forest.
func (r *Result) SpanCount() int {
	n := 0
	r.Walk(func(*Span, int) bool {
		n++
		return true
	})
	return n
}

// Spans returns every span in depth-first order.
func (r *Result) Spans() []*Span {
	var out []*Span
	r.Walk(func(s *Span, _ int) bool {
		out = append(out, s)
		return true
	})
	return out
}

// RootsForTrace returns the roots whose trace id matches.
func (r *Result) RootsForTrace(traceID string) []*Span {
	var out []*Span
	for _, root := range r.RootSpans {
		if root.TraceID == traceID {
			out = append(out, root)
		}
	}
	return out
}

// TraceByID returns the trace with the given id, or nil.
func (r *Result) TraceByID(id string) *Trace {
	for _, t := range r.Traces {
		if t.ID == id {
			return t
		}
	}
	return nil
}
