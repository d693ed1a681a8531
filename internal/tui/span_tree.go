package tui

import (
	"strings"

	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// ViewMode selects how the tree pane lays out spans
type ViewMode int

const (
	TreeMode ViewMode = iota
	TimelineMode
)

// RenderMode maps the view mode onto the line format used by render.
func (v ViewMode) RenderMode() render.Mode {
	if v == TimelineMode {
		return render.ModeTimeline
	}
	return render.ModeTree
}

// ViewModeFrom converts a render mode.
func ViewModeFrom(m render.Mode) ViewMode {
	if m == render.ModeTimeline {
		return TimelineMode
	}
	return TreeMode
}

// ViewState is the UI state of the viewer. It is keyed by span id so it
// survives a fresh reconstruction of the same log. An id present in
// Expanded with false was collapsed on purpose.
type ViewState struct {
	Expanded map[string]bool
	Cursor   int
	Mode     ViewMode
	Selected string
}

// NewViewState returns a state with every root expanded.
func NewViewState(res *tracetree.Result) ViewState {
	s := ViewState{Expanded: make(map[string]bool)}
	s.Reconcile(res)
	return s
}

// Reconcile expands roots the state has not seen before.
func (s *ViewState) Reconcile(res *tracetree.Result) {
	if s.Expanded == nil {
		s.Expanded = make(map[string]bool)
	}
	for _, root := range res.RootSpans {
		if _, seen := s.Expanded[root.ID]; !seen {
			s.Expanded[root.ID] = true
		}
	}
}

// IsExpanded reports whether span's children are visible.
func (s *ViewState) IsExpanded(span *tracetree.Span) bool {
	return s.Expanded[span.ID]
}

// SpanNode is one visible row of the tree pane
type SpanNode struct {
	Span   *tracetree.Span
	Depth  int
	Parent *SpanNode
	Prefix string // box-drawing connectors in tree mode
}

// HasChildren returns true if the span has children
func (n *SpanNode) HasChildren() bool {
	return len(n.Span.Children) > 0
}

// FlattenTree returns the visible rows in depth-first order
func FlattenTree(roots []*tracetree.Span, state *ViewState) []*SpanNode {
	var result []*SpanNode
	for _, root := range roots {
		flattenNode(root, nil, "", "", state, &result)
	}
	return result
}

func flattenNode(span *tracetree.Span, parent *SpanNode, prefix, childPrefix string, state *ViewState, result *[]*SpanNode) {
	node := &SpanNode{Span: span, Parent: parent, Prefix: prefix}
	if parent != nil {
		node.Depth = parent.Depth + 1
	}
	*result = append(*result, node)

	if !state.IsExpanded(span) {
		return
	}
	for i, child := range span.Children {
		if i == len(span.Children)-1 {
			flattenNode(child, node, childPrefix+"└── ", childPrefix+"    ", state, result)
		} else {
			flattenNode(child, node, childPrefix+"├── ", childPrefix+"│   ", state, result)
		}
	}
}

// Sync places the cursor on the selected span when it is visible, and
// otherwise clamps it to the rows.
func (s *ViewState) Sync(nodes []*SpanNode) {
	if s.Selected != "" {
		for i, n := range nodes {
			if n.Span.ID == s.Selected {
				s.Cursor = i
				return
			}
		}
	}
	if s.Cursor >= len(nodes) {
		s.Cursor = len(nodes) - 1
	}
	if s.Cursor < 0 {
		s.Cursor = 0
	}
	if len(nodes) > 0 {
		s.Selected = nodes[s.Cursor].Span.ID
	} else {
		s.Selected = ""
	}
}

// Move shifts the cursor by delta rows.
func (s *ViewState) Move(nodes []*SpanNode, delta int) {
	s.Cursor += delta
	s.Selected = ""
	s.Sync(nodes)
}

// Toggle flips expansion of the span under the cursor.
func (s *ViewState) Toggle(nodes []*SpanNode) {
	if n := s.current(nodes); n != nil && n.HasChildren() {
		s.Expanded[n.Span.ID] = !s.Expanded[n.Span.ID]
	}
}

// Expand opens the span under the cursor.
func (s *ViewState) Expand(nodes []*SpanNode) {
	if n := s.current(nodes); n != nil && n.HasChildren() {
		s.Expanded[n.Span.ID] = true
	}
}

// CollapseOrParent closes the span under the cursor, or moves to its
// parent when it is already closed or a leaf.
func (s *ViewState) CollapseOrParent(nodes []*SpanNode) {
	n := s.current(nodes)
	if n == nil {
		return
	}
	if n.HasChildren() && s.Expanded[n.Span.ID] {
		s.Expanded[n.Span.ID] = false
		return
	}
	if n.Parent != nil {
		s.Selected = n.Parent.Span.ID
		s.Sync(nodes)
	}
}

// ToggleMode switches between tree and timeline layouts.
func (s *ViewState) ToggleMode() {
	if s.Mode == TreeMode {
		s.Mode = TimelineMode
	} else {
		s.Mode = TreeMode
	}
}

// Reveal selects the span with id, expanding its ancestors. It reports
// false when no such span is in the forest.
func (s *ViewState) Reveal(roots []*tracetree.Span, id string) bool {
	path := pathTo(roots, id)
	if path == nil {
		return false
	}
	for _, ancestor := range path[:len(path)-1] {
		s.Expanded[ancestor.ID] = true
	}
	s.Selected = id
	return true
}

// NextError returns the id of the first error span after the selected one
// in depth-first order, wrapping around. It ignores expansion.
func NextError(roots []*tracetree.Span, after string) (string, bool) {
	var all []*tracetree.Span
	var walk func(spans []*tracetree.Span)
	walk = func(spans []*tracetree.Span) {
		for _, sp := range spans {
			all = append(all, sp)
			walk(sp.Children)
		}
	}
	walk(roots)

	start := -1
	for i, sp := range all {
		if sp.ID == after {
			start = i
			break
		}
	}
	for k := 1; k <= len(all); k++ {
		sp := all[(start+k+len(all))%len(all)]
		if sp.Failed() {
			return sp.ID, true
		}
	}
	return "", false
}

func (s *ViewState) current(nodes []*SpanNode) *SpanNode {
	if s.Cursor < 0 || s.Cursor >= len(nodes) {
		return nil
	}
	return nodes[s.Cursor]
}

// pathTo returns the chain of spans from a root down to id.
func pathTo(spans []*tracetree.Span, id string) []*tracetree.Span {
	for _, sp := range spans {
		if sp.ID == id {
			return []*tracetree.Span{sp}
		}
		if rest := pathTo(sp.Children, id); rest != nil {
			return append([]*tracetree.Span{sp}, rest...)
		}
	}
	return nil
}

// rowText renders a row without cursor highlighting.
func rowText(p render.Palette, n *SpanNode, state *ViewState) string {
	marker := "  "
	if n.HasChildren() {
		if state.IsExpanded(n.Span) {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}

	var b strings.Builder
	if state.Mode == TimelineMode {
		b.WriteString(strings.Repeat("  ", n.Depth))
	} else {
		b.WriteString(p.Muted.Render(n.Prefix))
	}
	b.WriteString(marker)
	b.WriteString(render.SpanLine(p, n.Span, state.Mode.RenderMode()))
	return b.String()
}
