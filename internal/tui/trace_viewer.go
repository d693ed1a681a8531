package tui

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// tickMsg is sent periodically to check for file updates
type tickMsg time.Time

const (
	CtrlC   = "ctrl+c"
	KeyUp   = "up"
	KeyDown = "down"

	// DefaultWatchInterval is how often --watch polls the log.
	DefaultWatchInterval = 500 * time.Millisecond
)

// FocusArea represents which panel is currently focused
type FocusArea int

const (
	FocusTree FocusArea = iota
	FocusDetails
)

// Options configures a viewer
type Options struct {
	Path     string // log file; required for Watch
	Title    string
	Watch    bool
	Interval time.Duration
	Mode     ViewMode
	Engine   []tracetree.Option // applied on every reload
}

// Model is the bubbletea model for the trace viewer
type Model struct {
	res     *tracetree.Result
	opts    Options
	state   ViewState
	nodes   []*SpanNode
	palette render.Palette

	focusArea      FocusArea
	treeViewport   viewport.Model
	detailViewport viewport.Model
	ready          bool
	width          int
	height         int

	// Hot reload / file watching
	lastSize   int64
	lastUpdate time.Time
	reloadErr  error
}

// NewTraceViewer creates a viewer over a reconstruction
func NewTraceViewer(res *tracetree.Result, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = DefaultWatchInterval
	}
	m := Model{
		res:            res,
		opts:           opts,
		state:          NewViewState(res),
		palette:        render.PaletteFor(lipgloss.DefaultRenderer()),
		treeViewport:   viewport.New(40, 10),
		detailViewport: viewport.New(40, 10),
	}
	m.state.Mode = opts.Mode
	if opts.Watch && opts.Path != "" {
		if info, err := os.Stat(opts.Path); err == nil {
			m.lastSize = info.Size()
		}
	}
	m.refresh()
	return m
}

// State returns the current view state
func (m Model) State() ViewState {
	return m.state
}

// Result returns the reconstruction being shown
func (m Model) Result() *tracetree.Result {
	return m.res
}

// VisibleNodes returns the rows of the tree pane
func (m Model) VisibleNodes() []*SpanNode {
	return m.nodes
}

func (m Model) Init() tea.Cmd {
	if m.live() {
		return m.tickCmd()
	}
	return nil
}

func (m Model) live() bool {
	return m.opts.Watch && m.opts.Path != ""
}

// tickCmd returns a command that sends a tick after the watch interval
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tickMsg:
		if m.live() {
			m.checkFileUpdates()
			return m, m.tickCmd()
		}
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		availableWidth := msg.Width - 4
		availableHeight := msg.Height - 6
		if availableHeight < 6 {
			availableHeight = 6
		}
		leftWidth := (availableWidth * 55) / 100
		rightWidth := availableWidth - leftWidth

		m.treeViewport.Width = leftWidth - 4
		m.treeViewport.Height = availableHeight - 3
		m.detailViewport.Width = rightWidth - 4
		m.detailViewport.Height = availableHeight - 3
		m.ready = true
		m.updateDetailViewport()
	}

	// Only the details pane scrolls on its own
	if m.focusArea == FocusDetails {
		m.detailViewport, cmd = m.detailViewport.Update(msg)
	}

	return m, cmd
}

// handleKey applies a key press. Keys it leaves unhandled fall through to
// the focused viewport.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q", CtrlC:
		return m, tea.Quit, true

	case "tab":
		if m.focusArea == FocusTree {
			m.focusArea = FocusDetails
		} else {
			m.focusArea = FocusTree
		}
		return m, nil, true

	case "t":
		m.state.ToggleMode()
		m.refresh()
		return m, nil, true

	case "e":
		if id, ok := NextError(m.res.RootSpans, m.state.Selected); ok {
			m.state.Reveal(m.res.RootSpans, id)
			m.focusArea = FocusTree
			m.refresh()
		}
		return m, nil, true
	}

	if m.focusArea != FocusTree {
		return m, nil, false
	}

	switch msg.String() {
	case KeyUp, "k":
		m.state.Move(m.nodes, -1)
	case KeyDown, "j":
		m.state.Move(m.nodes, 1)
	case "enter", " ":
		m.state.Toggle(m.nodes)
	case "l", "right":
		m.state.Expand(m.nodes)
	case "h", "left":
		m.state.CollapseOrParent(m.nodes)
	default:
		return m, nil, false
	}
	m.refresh()
	return m, nil, true
}

// refresh rebuilds the visible rows and keeps the cursor on the selection
func (m *Model) refresh() {
	m.nodes = FlattenTree(m.res.RootSpans, &m.state)
	m.state.Sync(m.nodes)
	m.updateDetailViewport()
}

// checkFileUpdates re-reconstructs the log when its size changed. The
// view state is keyed by span id, so expansion and selection carry over.
func (m *Model) checkFileUpdates() {
	info, err := os.Stat(m.opts.Path)
	if err != nil {
		m.reloadErr = err
		return
	}
	if info.Size() == m.lastSize {
		return
	}

	file, err := os.Open(m.opts.Path)
	if err != nil {
		m.reloadErr = err
		return
	}
	defer func() { _ = file.Close() }()

	res, err := tracetree.ReconstructReader(file, m.opts.Engine...)
	if err != nil {
		// Keep showing the last good reconstruction.
		m.reloadErr = err
		return
	}

	m.lastSize = info.Size()
	m.lastUpdate = time.Now()
	m.reloadErr = nil
	m.res = res
	m.state.Reconcile(res)
	m.refresh()
}

func (m *Model) updateDetailViewport() {
	if m.state.Cursor >= len(m.nodes) || len(m.nodes) == 0 {
		m.detailViewport.SetContent(MutedStyle.Render("No span selected"))
		return
	}
	var buf bytes.Buffer
	if err := render.Inspect(&buf, m.nodes[m.state.Cursor].Span); err != nil {
		m.detailViewport.SetContent(ErrorStyle.Render(err.Error()))
		return
	}
	m.detailViewport.SetContent(buf.String())
	m.detailViewport.GotoTop()
}

// View renders the model
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	tree := m.renderTreePanel()
	details := m.renderDetailPanel()

	treeBox, detailBox := BoxStyle, BoxStyle
	if m.focusArea == FocusTree {
		treeBox = FocusedBoxStyle
	} else {
		detailBox = FocusedBoxStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		treeBox.Width(m.treeViewport.Width+2).Render(tree),
		detailBox.Width(m.detailViewport.Width+2).Render(details),
	)

	return strings.Join([]string{m.renderGlobalHeader(), body, m.renderStatusBar()}, "\n")
}

func (m Model) renderGlobalHeader() string {
	var b strings.Builder

	title := m.opts.Title
	if title == "" {
		title = "Agent Trace Viewer"
	}
	if m.live() {
		b.WriteString(LiveStyle.Render("● LIVE") + " ")
	}
	b.WriteString(TitleStyle.Render(title))

	running, failed := 0, 0
	m.res.Walk(func(span *tracetree.Span, _ int) bool {
		switch span.Status {
		case tracetree.StatusRunning:
			running++
		case tracetree.StatusError:
			failed++
		}
		return true
	})
	summary := fmt.Sprintf("  %d traces · %d spans · %d running", len(m.res.Traces), m.res.SpanCount(), running)
	b.WriteString(MutedStyle.Render(summary))
	if failed > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf(" · %d errors", failed)))
	}
	if m.reloadErr != nil {
		b.WriteString(ErrorStyle.Render("  reload failed: " + m.reloadErr.Error()))
	} else if !m.lastUpdate.IsZero() {
		b.WriteString(MutedStyle.Render("  updated " + m.lastUpdate.Format("15:04:05")))
	}
	return b.String()
}

func (m Model) renderTreePanel() string {
	var b strings.Builder

	title := "Spans"
	if m.state.Mode == TimelineMode {
		title = "Timeline"
	}
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n")

	var content strings.Builder
	for i, node := range m.nodes {
		line := rowText(m.palette, node, &m.state)
		if i == m.state.Cursor {
			line = SelectedStyle.Render(line)
		}
		content.WriteString(line)
		content.WriteString("\n")
	}
	if len(m.nodes) == 0 {
		content.WriteString(MutedStyle.Render("No spans"))
	}

	m.treeViewport.SetContent(content.String())

	// Auto-scroll to cursor
	if m.state.Cursor < m.treeViewport.YOffset {
		m.treeViewport.YOffset = m.state.Cursor
	} else if m.state.Cursor >= m.treeViewport.YOffset+m.treeViewport.Height {
		m.treeViewport.YOffset = m.state.Cursor - m.treeViewport.Height + 1
	}

	b.WriteString(m.treeViewport.View())
	return b.String()
}

func (m Model) renderDetailPanel() string {
	return HeaderStyle.Render("Details") + "\n" + m.detailViewport.View()
}

func (m Model) renderStatusBar() string {
	keys := []string{
		HelpKeyStyle.Render("[↑↓/jk]") + " Nav",
		HelpKeyStyle.Render("[enter]") + " Toggle",
		HelpKeyStyle.Render("[h/l]") + " Fold",
		HelpKeyStyle.Render("[t]") + " Tree/Timeline",
		HelpKeyStyle.Render("[e]") + " Next error",
		HelpKeyStyle.Render("[tab]") + " Focus",
		HelpKeyStyle.Render("[q]") + " Quit",
	}
	return HelpStyle.Render(strings.Join(keys, "  "))
}

// Run starts the viewer on the terminal
func Run(res *tracetree.Result, opts Options) error {
	p := tea.NewProgram(NewTraceViewer(res, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
