package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7C3AED") // Purple
	SecondaryColor = lipgloss.Color("#06B6D4") // Cyan
	SuccessColor   = lipgloss.Color("#10B981") // Green
	ErrorColor     = lipgloss.Color("#EF4444") // Red
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	MutedColor     = lipgloss.Color("#6B7280") // Gray
	AccentColor    = lipgloss.Color("#F472B6") // Pink
	AgentColor     = lipgloss.Color("#3B82F6") // Blue
	ModelColor     = lipgloss.Color("#8B5CF6") // Violet
)

// Palette holds the styles used to print spans. Build it from a renderer
// so output to files and pipes can drop colors.
type Palette struct {
	Header   lipgloss.Style
	Muted    lipgloss.Style
	Duration lipgloss.Style
	Badge    lipgloss.Style
	Tool     lipgloss.Style

	Running   lipgloss.Style
	Completed lipgloss.Style
	Failed    lipgloss.Style

	Agent      lipgloss.Style
	Generation lipgloss.Style
	Function   lipgloss.Style
	Other      lipgloss.Style
}

// NewPalette builds the palette for w. With color false every style renders
// plain text.
func NewPalette(w io.Writer, color bool) Palette {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return PaletteFor(r)
}

// PaletteFor builds the palette on an existing renderer.
func PaletteFor(r *lipgloss.Renderer) Palette {
	return Palette{
		Header:   r.NewStyle().Bold(true).Foreground(PrimaryColor),
		Muted:    r.NewStyle().Foreground(MutedColor),
		Duration: r.NewStyle().Foreground(AccentColor),
		Badge:    r.NewStyle().Foreground(ModelColor),
		Tool:     r.NewStyle().Foreground(WarningColor),

		Running:   r.NewStyle().Foreground(SecondaryColor),
		Completed: r.NewStyle().Foreground(SuccessColor),
		Failed:    r.NewStyle().Foreground(ErrorColor).Bold(true),

		Agent:      r.NewStyle().Foreground(AgentColor).Bold(true),
		Generation: r.NewStyle().Foreground(ModelColor),
		Function:   r.NewStyle().Foreground(SuccessColor),
		Other:      r.NewStyle(),
	}
}

// Kind returns the style for a span kind.
func (p Palette) Kind(kind tracetree.SpanKind) lipgloss.Style {
	switch kind {
	case tracetree.KindAgent:
		return p.Agent
	case tracetree.KindGeneration:
		return p.Generation
	case tracetree.KindFunction:
		return p.Function
	default:
		return p.Other
	}
}

// Status returns the style for a span status.
func (p Palette) Status(status tracetree.Status) lipgloss.Style {
	switch status {
	case tracetree.StatusCompleted:
		return p.Completed
	case tracetree.StatusError:
		return p.Failed
	default:
		return p.Running
	}
}
