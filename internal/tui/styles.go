// Package tui provides the interactive terminal viewer for reconstructed traces.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ArthurBrioche/Agent-tracing/internal/render"
)

// Box styles
var (
	// BoxStyle is the main container style
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(render.MutedColor).
			Padding(0, 1)

	// FocusedBoxStyle marks the pane receiving keys
	FocusedBoxStyle = BoxStyle.
			BorderForeground(render.PrimaryColor)

	// HeaderStyle for pane headers
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(render.PrimaryColor)

	// TitleStyle for the main title
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(render.PrimaryColor).
			Padding(0, 2)
)

// Text styles
var (
	// SelectedStyle for the row under the cursor
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(render.SecondaryColor)

	// MutedStyle for less important text
	MutedStyle = lipgloss.NewStyle().
			Foreground(render.MutedColor)

	// ErrorStyle for error indicators
	ErrorStyle = lipgloss.NewStyle().
			Foreground(render.ErrorColor)

	// LiveStyle for the watch indicator
	LiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(render.ErrorColor)
)

// Help bar style
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(render.MutedColor).
			Padding(0, 1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(render.SecondaryColor).
			Bold(true)
)
