package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ArthurBrioche/Agent-tracing/internal/eval"
	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
)

var checkCmd = &cobra.Command{
	Use:   "check <file> <suite.yaml>",
	Short: "Run assertion suites against a trace",
	Long: `Run the assertions of a YAML suite against a reconstructed trace.

Each test can assert tool calls, generation counts, span counts, the
execution path, error-free runs, and the status, type and output of
individual spans.

Examples:
  # Run a suite
  agent-trace check run.jsonl suite.yaml

  # JUnit report for CI
  agent-trace check run.jsonl suite.yaml --format junit > report.xml

  # Stop at the first failure and keep a markdown report
  agent-trace check run.jsonl suite.yaml --fail-fast --report report.md

  # Validate the suite without running it
  agent-trace check run.jsonl suite.yaml --validate-only`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

var (
	checkValidateOnly bool
	checkOutputFormat string
	checkFailFast     bool
	checkReportFile   string
)

// errChecksFailed makes the process exit non-zero after the report is printed.
type errChecksFailed struct {
	failed, total int
}

func (e *errChecksFailed) Error() string {
	return fmt.Sprintf("%d of %d checks failed", e.failed, e.total)
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkValidateOnly, "validate-only", false, "Only validate the suite, don't run it")
	checkCmd.Flags().StringVarP(&checkOutputFormat, "format", "f", "console", "Output format ("+strings.Join(eval.Formats, ", ")+")")
	checkCmd.Flags().BoolVar(&checkFailFast, "fail-fast", false, "Stop on first test failure")
	checkCmd.Flags().StringVarP(&checkReportFile, "report", "r", "", "Also save a markdown report to this file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	tracePath, suitePath := args[0], args[1]
	out := cmd.OutOrStdout()

	if !validFormat(checkOutputFormat) {
		return utils.NewUserError(
			fmt.Sprintf("Unknown report format: %s", checkOutputFormat),
			"Use one of: "+strings.Join(eval.Formats, ", "),
			nil,
		)
	}

	if verbose {
		fmt.Fprintf(out, "📋 Loading suite: %s\n", suitePath)
	}
	suite, err := eval.ParseSuiteFile(suitePath)
	if err != nil {
		return utils.NewUserError(
			fmt.Sprintf("Invalid suite %s", suitePath),
			"Check the YAML against the suite format shown in 'agent-trace check --help'",
			err,
		)
	}
	if verbose {
		fmt.Fprintf(out, "✓ Loaded %d test(s) from suite: %s\n", len(suite.Tests), suite.Name)
	}

	if checkValidateOnly {
		color.New(color.FgGreen).Fprintln(out, "✓ Suite is valid")
		return nil
	}

	res, err := loadResult(tracePath)
	if err != nil {
		return err
	}

	runner := eval.NewRunner(&eval.RunnerConfig{
		Verbose:  verbose,
		FailFast: checkFailFast,
		Out:      out,
	})
	if verbose {
		fmt.Fprintln(out, "\n🚀 Running checks...")
		fmt.Fprintln(out, "====================")
	}
	results := runner.Run(suite, res)
	results.Source = utils.InputName(tracePath)

	reporter := eval.NewReporter(checkOutputFormat)
	if err := reporter.Generate(results, out); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if checkReportFile != "" {
		if err := writeMarkdownReport(checkReportFile, results); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write markdown report: %v\n", err)
		} else if checkOutputFormat == "console" {
			fmt.Fprintf(out, "\n📄 Detailed report saved to: %s\n", checkReportFile)
		}
	}

	if !results.AllPassed() {
		return &errChecksFailed{failed: results.FailedTests, total: results.TotalTests}
	}
	return nil
}

func validFormat(format string) bool {
	for _, f := range eval.Formats {
		if f == format {
			return true
		}
	}
	return false
}

func writeMarkdownReport(path string, results *eval.SuiteResults) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return eval.NewReporter("markdown").Generate(results, f)
}
