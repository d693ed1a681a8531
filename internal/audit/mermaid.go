package audit

import (
	"fmt"
	"strings"

	"github.com/TyphonHill/go-mermaid/diagrams/flowchart"

	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// maxLabel bounds node label text before the duration line.
const maxLabel = 60

// GenerateMermaid creates a Mermaid flowchart of the span forest
func GenerateMermaid(res *tracetree.Result) string {
	diagram := flowchart.NewFlowchart()
	diagram.EnableMarkdownFence()
	diagram.SetDirection(flowchart.FlowchartDirectionTopDown)
	diagram.Config.SetHtmlLabels(true)

	var addSpan func(span *tracetree.Span) *flowchart.Node
	addSpan = func(span *tracetree.Span) *flowchart.Node {
		node := diagram.AddNode(formatNodeLabel(span))
		applyFlowchartShape(node, span.SpanData.Kind)
		if style := getFlowchartStyle(span); style != nil {
			node.SetStyle(style)
		}
		for _, child := range span.Children {
			diagram.AddLink(node, addSpan(child))
		}
		return node
	}
	for _, root := range res.RootSpans {
		addSpan(root)
	}

	return diagram.String()
}

// formatNodeLabel creates a concise label for the node
func formatNodeLabel(span *tracetree.Span) string {
	desc := render.Truncate(render.DisplayName(span), maxLabel)
	if model := span.SpanData.Model(); model != "" {
		desc = fmt.Sprintf("%s [%s]", desc, model)
	}
	if span.Tool != "" && span.Tool != render.DisplayName(span) {
		desc = fmt.Sprintf("%s @%s", desc, span.Tool)
	}
	desc = strings.NewReplacer(`"`, "'", "\n", " ").Replace(desc)

	return fmt.Sprintf("%s %s<br/>%s", render.Icon(span.SpanData.Kind), desc, render.FormatDuration(span.Duration))
}

func applyFlowchartShape(node *flowchart.Node, kind tracetree.SpanKind) {
	switch kind {
	case tracetree.KindAgent:
		node.SetShape(flowchart.NodeShapeTerminal)
	case tracetree.KindFunction:
		node.SetShape(flowchart.NodeShapeSubprocess)
	case tracetree.KindGeneration:
		node.SetShape(flowchart.NodeShapeDecision)
	default:
		node.SetShape(flowchart.NodeShapeProcess)
	}
}

// getFlowchartStyle returns Mermaid styling for the span
func getFlowchartStyle(span *tracetree.Span) *flowchart.NodeStyle {
	style := flowchart.NewNodeStyle()
	style.StrokeWidth = 1

	if span.Status == tracetree.StatusError {
		style.Fill = "#ffebee"
		style.Stroke = "#b71c1c"
		style.StrokeWidth = 2
		return style
	}

	switch span.SpanData.Kind {
	case tracetree.KindAgent:
		style.Fill = "#e1f5fe"
		style.Stroke = "#01579b"
	case tracetree.KindFunction:
		style.Fill = "#e8f5e9"
		style.Stroke = "#1b5e20"
	case tracetree.KindGeneration:
		style.Fill = "#f3e5f5"
		style.Stroke = "#4a148c"
	default:
		return nil
	}

	return style
}
