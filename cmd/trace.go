package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ArthurBrioche/Agent-tracing/internal/audit"
	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/internal/tui"
	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// viewCmd opens the interactive viewer
var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Explore a trace in the interactive viewer",
	Long: `Open the interactive trace viewer.

Keys:
  up/down, k/j   move
  enter, space   expand or collapse
  l / h          expand / collapse or go to parent
  t              toggle tree and timeline
  e              jump to the next error span
  tab            switch between tree and details
  q              quit

Examples:
  agent-trace view run.jsonl
  agent-trace view run.jsonl --watch
  cat run.jsonl | agent-trace view -`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

// treeCmd prints the span forest
var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Print the span tree",
	Long: `Print the reconstructed span forest, grouped by trace.

Examples:
  agent-trace tree run.jsonl
  agent-trace tree run.jsonl --mode timeline
  agent-trace tree run.jsonl --trace trace_abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

// inspectCmd prints the details of one span
var inspectCmd = &cobra.Command{
	Use:   "inspect <file> <span-id>",
	Short: "Show the details of a span",
	Args:  cobra.ExactArgs(2),
	RunE:  runInspect,
}

// statsCmd prints diagnostics and the audit summary
var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Show reconstruction diagnostics and run statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

var (
	viewWatch   bool
	treeTraceID string
	statsJSON   bool
)

func init() {
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(statsCmd)

	viewCmd.Flags().BoolVarP(&viewWatch, "watch", "w", false, "Reload when the file grows")
	viewCmd.Flags().String("mode", "tree", "View mode: tree or timeline")

	treeCmd.Flags().String("mode", "tree", "View mode: tree or timeline")
	treeCmd.Flags().StringVar(&treeTraceID, "trace", "", "Only print spans of this trace id")

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print as JSON")
}

func runView(cmd *cobra.Command, args []string) error {
	path := args[0]
	if viewWatch && path == utils.StdinPath {
		return utils.NewUserError("Cannot watch stdin", "Pass a file path to use --watch", nil)
	}

	mode, err := render.ParseMode(stringFlag(cmd, "mode", cfg.View.Mode))
	if err != nil {
		return err
	}
	interval, err := cfg.View.Interval()
	if err != nil {
		return err
	}
	opts, err := engineOptions()
	if err != nil {
		return err
	}

	res, err := loadResult(path)
	if err != nil {
		return err
	}

	err = tui.Run(res, tui.Options{
		Path:     path,
		Title:    utils.InputName(path),
		Watch:    viewWatch,
		Interval: interval,
		Mode:     tui.ViewModeFrom(mode),
		Engine:   opts,
	})
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	mode, err := render.ParseMode(stringFlag(cmd, "mode", cfg.View.Mode))
	if err != nil {
		return err
	}
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	err = render.Tree(out, res, render.TreeOptions{
		Mode:    mode,
		TraceID: treeTraceID,
		Color:   isTerminal(out),
	})
	if err != nil && treeTraceID != "" && res.TraceByID(treeTraceID) == nil {
		return utils.NewUserError(
			fmt.Sprintf("Trace not found: %s", treeTraceID),
			"Run 'agent-trace stats' to list the trace ids in this file",
			err,
		)
	}
	return err
}

func runInspect(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}

	span := res.Find(args[1])
	if span == nil {
		return utils.NewUserError(
			fmt.Sprintf("Span not found: %s", args[1]),
			"Run 'agent-trace tree' to see the span ids in this file",
			nil,
		)
	}
	return render.Inspect(cmd.OutOrStdout(), span)
}

// statsOutput is the JSON form of the stats command.
type statsOutput struct {
	Source      string                `json:"source"`
	Diagnostics tracetree.Diagnostics `json:"diagnostics"`
	Audit       *audit.Report         `json:"audit"`
}

func runStats(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	report := audit.Collect(res)
	out := cmd.OutOrStdout()

	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statsOutput{
			Source:      utils.InputName(args[0]),
			Diagnostics: res.Diagnostics,
			Audit:       report,
		})
	}

	printStats(out, utils.InputName(args[0]), res.Diagnostics, report)
	return nil
}

func printStats(w io.Writer, source string, d tracetree.Diagnostics, r *audit.Report) {
	heading := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	fmt.Fprintln(w)
	heading.Fprintf(w, "Reconstruction: %s\n", source)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%-21s%d\n", "Lines:", d.Lines)
	fmt.Fprintf(w, "%-21s%d\n", "Records:", d.Records)
	line := ok
	if len(d.SkippedLines) > 0 {
		line = warn
	}
	line.Fprintf(w, "%-21s%d\n", "Skipped lines:", len(d.SkippedLines))
	for _, le := range d.SkippedLines {
		fmt.Fprintf(w, "  line %d: %v\n", le.Line, le.Err)
	}
	fmt.Fprintf(w, "%-21s%d explicit, %d heuristic\n", "End matches:", d.ExplicitMatches, d.HeuristicMatches)
	if d.DroppedEnds > 0 || d.RepeatedEnds > 0 {
		warn.Fprintf(w, "%-21s%d dropped, %d repeated\n", "Unmatched ends:", d.DroppedEnds, d.RepeatedEnds)
	}
	if d.DuplicateStarts > 0 {
		warn.Fprintf(w, "%-21s%d\n", "Duplicate starts:", d.DuplicateStarts)
	}
	if d.OrphansPromoted > 0 || d.CyclesBroken > 0 {
		warn.Fprintf(w, "%-21s%d orphans, %d cycles\n", "Promoted to root:", d.OrphansPromoted, d.CyclesBroken)
	}
	if d.UnknownEvents > 0 {
		fmt.Fprintf(w, "%-21s%d\n", "Unknown events:", d.UnknownEvents)
	}
	fmt.Fprintln(w)

	s := r.Summary
	heading.Fprintln(w, "Execution")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%-21s%d\n", "Spans:", s.TotalSpans)
	for _, kind := range []tracetree.SpanKind{tracetree.KindAgent, tracetree.KindGeneration, tracetree.KindFunction, tracetree.KindOther} {
		if n := s.ByKind[kind]; n > 0 {
			fmt.Fprintf(w, "  %-19s%d\n", string(kind)+":", n)
		}
	}
	fmt.Fprintf(w, "%-21s%d\n", "LLM calls:", s.LLMCallCount)
	fmt.Fprintf(w, "%-21s%d\n", "Tool calls:", s.ToolCallCount)
	if len(r.ToolCalls) > 0 {
		fmt.Fprintf(w, "%-21s%s\n", "Tools:", strings.Join(r.ToolCalls, " → "))
	}
	if len(r.Models) > 0 {
		fmt.Fprintf(w, "%-21s%s\n", "Models:", strings.Join(r.Models, ", "))
	}
	ok.Fprintf(w, "%-21s%d\n", "Completed:", s.ByStatus[tracetree.StatusCompleted])
	if n := s.ByStatus[tracetree.StatusRunning]; n > 0 {
		warn.Fprintf(w, "%-21s%d\n", "Running:", n)
	}
	if n := s.ByStatus[tracetree.StatusError]; n > 0 {
		bad.Fprintf(w, "%-21s%d\n", "Errors:", n)
		for _, e := range r.Errors {
			bad.Fprintf(w, "  ✗ %s (%s)\n", e.SpanName, e.SpanID)
		}
	}
	fmt.Fprintln(w)

	if len(r.Traces) > 0 {
		heading.Fprintln(w, "Traces")
		fmt.Fprintln(w, strings.Repeat("─", 60))
		for _, t := range r.Traces {
			name := t.WorkflowName
			if name == "" {
				name = t.TraceID
			}
			fmt.Fprintf(w, "%-40s %4d spans  %s\n", render.Truncate(name, 40), t.SpanCount, formatMs(t.WallTimeMs))
		}
		fmt.Fprintln(w)
	}

	if len(r.Slowest) > 0 {
		heading.Fprintln(w, "Slowest spans")
		fmt.Fprintln(w, strings.Repeat("─", 60))
		for _, e := range r.Slowest {
			fmt.Fprintf(w, "%-40s %s\n", render.Truncate(e.SpanName, 40), formatMs(e.DurationMs))
		}
		fmt.Fprintln(w)
	}
}

func formatMs(ms *float64) string {
	if ms == nil {
		return render.RunningLabel
	}
	return fmt.Sprintf("%.2fs", *ms/1000)
}

// isTerminal reports whether w is a terminal that should get color.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
