package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// Mode selects the tree layout.
type Mode string

const (
	// ModeTree draws box connectors and compact badges.
	ModeTree Mode = "tree"
	// ModeTimeline indents by depth and shows full badges.
	ModeTimeline Mode = "timeline"
)

// ParseMode accepts "tree" and "timeline". Empty means tree.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeTree:
		return ModeTree, nil
	case ModeTimeline:
		return ModeTimeline, nil
	}
	return "", fmt.Errorf("unknown view mode %q (want tree or timeline)", s)
}

// TreeOptions controls Tree.
type TreeOptions struct {
	Mode    Mode
	TraceID string
	Color   bool
}

// Tree prints the forest, grouped by trace.
func Tree(w io.Writer, res *tracetree.Result, opts TreeOptions) error {
	p := NewPalette(w, opts.Color)
	groups, err := groupRoots(res, opts.TraceID)
	if err != nil {
		return err
	}

	ew := &errWriter{w: w}
	for i, g := range groups {
		if i > 0 {
			ew.printf("\n")
		}
		if g.title != "" {
			ew.printf("%s\n", p.Header.Render(g.title))
		}
		for j, root := range g.roots {
			if opts.Mode == ModeTimeline {
				printTimeline(ew, p, root, 0)
			} else {
				printTree(ew, p, root, "", j == len(g.roots)-1, true)
			}
		}
	}
	return ew.err
}

// SpanLine renders one span without indentation.
func SpanLine(p Palette, span *tracetree.Span, mode Mode) string {
	kind := span.SpanData.Kind
	model := span.SpanData.Model()

	var b strings.Builder
	b.WriteString(Icon(kind))
	b.WriteString(" ")
	b.WriteString(p.Kind(kind).Render(DisplayName(span)))

	if mode == ModeTimeline {
		b.WriteString("  " + p.Duration.Render(FormatDuration(span.Duration)))
		if model != "" {
			b.WriteString(" " + p.Badge.Render("["+model+"]"))
		}
		if span.Tool != "" {
			b.WriteString(" " + p.Tool.Render("["+span.Tool+"]"))
		}
		b.WriteString("  " + p.Status(span.Status).Render(string(span.Status)))
	} else {
		if model != "" {
			b.WriteString(" " + p.Badge.Render("["+ShortModel(model)+"]"))
		}
		if span.Tool != "" {
			b.WriteString(" " + p.Tool.Render("["+span.Tool+"]"))
		}
		b.WriteString(" " + p.Duration.Render(FormatDuration(span.Duration)))
		b.WriteString(" " + p.Status(span.Status).Render(StatusSymbol(span.Status)))
	}

	if span.MatchedBy == tracetree.MatchHeuristic {
		b.WriteString(" " + p.Muted.Render("(matched by type)"))
	}
	return b.String()
}

func printTree(w *errWriter, p Palette, span *tracetree.Span, prefix string, last, root bool) {
	connector, childPrefix := "", prefix
	if !root {
		if last {
			connector, childPrefix = "└── ", prefix+"    "
		} else {
			connector, childPrefix = "├── ", prefix+"│   "
		}
	}
	w.printf("%s%s\n", p.Muted.Render(prefix+connector), SpanLine(p, span, ModeTree))
	for i, c := range span.Children {
		printTree(w, p, c, childPrefix, i == len(span.Children)-1, false)
	}
}

func printTimeline(w *errWriter, p Palette, span *tracetree.Span, depth int) {
	w.printf("%s%s\n", strings.Repeat("  ", depth), SpanLine(p, span, ModeTimeline))
	for _, c := range span.Children {
		printTimeline(w, p, c, depth+1)
	}
}

type rootGroup struct {
	title string
	roots []*tracetree.Span
}

func groupRoots(res *tracetree.Result, traceID string) ([]rootGroup, error) {
	if traceID != "" {
		t := res.TraceByID(traceID)
		roots := res.RootsForTrace(traceID)
		if t == nil && len(roots) == 0 {
			return nil, fmt.Errorf("trace %q not found", traceID)
		}
		return []rootGroup{{title: TraceTitle(t, traceID), roots: roots}}, nil
	}
	if len(res.Traces) == 0 {
		return []rootGroup{{roots: res.RootSpans}}, nil
	}

	known := make(map[string]bool, len(res.Traces))
	groups := make([]rootGroup, 0, len(res.Traces)+1)
	for _, t := range res.Traces {
		known[t.ID] = true
		groups = append(groups, rootGroup{title: TraceTitle(t, t.ID), roots: res.RootsForTrace(t.ID)})
	}
	var rest []*tracetree.Span
	for _, r := range res.RootSpans {
		if !known[r.TraceID] {
			rest = append(rest, r)
		}
	}
	if len(rest) > 0 {
		groups = append(groups, rootGroup{title: "Spans outside any trace", roots: rest})
	}
	return groups, nil
}

// TraceTitle is the heading used for a trace.
func TraceTitle(t *tracetree.Trace, id string) string {
	if t == nil || t.WorkflowName == "" {
		return "Trace " + id
	}
	return fmt.Sprintf("%s (%s)", t.WorkflowName, t.ID)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
