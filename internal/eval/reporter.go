package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Reporter generates test reports in various formats
type Reporter struct {
	format string
}

// NewReporter creates a new reporter
func NewReporter(format string) *Reporter {
	return &Reporter{format: format}
}

// Formats lists the supported report formats.
var Formats = []string{"console", "json", "junit", "markdown"}

// Generate creates a report and writes it to the writer
func (r *Reporter) Generate(results *SuiteResults, w io.Writer) error {
	switch r.format {
	case "console", "":
		return r.generateConsole(results, w)
	case "json":
		return r.generateJSON(results, w)
	case "junit":
		return r.generateJUnit(results, w)
	case "markdown":
		return r.generateMarkdown(results, w)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// generateConsole creates a human-readable console report
func (r *Reporter) generateConsole(results *SuiteResults, w io.Writer) error {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  TRACE CHECKS: %s\n", results.SuiteName)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")

	if results.Source != "" {
		fmt.Fprintf(w, "Trace Log:      %s\n", results.Source)
	}
	fmt.Fprintf(w, "Total Tests:    %d\n", results.TotalTests)
	fmt.Fprintf(w, "Passed:         %d ✓\n", results.PassedTests)
	fmt.Fprintf(w, "Failed:         %d ✗\n", results.FailedTests)
	fmt.Fprintf(w, "Pass Rate:      %.1f%%\n", results.PassRate())
	fmt.Fprintf(w, "\n")

	if results.FailedTests > 0 {
		fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "  FAILED TESTS\n")
		fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "\n")

		for _, result := range results.Results {
			if result.Passed {
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", result.TestName)
			if result.TraceID != "" {
				fmt.Fprintf(w, "  Trace ID: %s\n", result.TraceID)
			}
			fmt.Fprintf(w, "  Spans checked: %d\n", result.SpanCount)
			for _, f := range result.Failures {
				fmt.Fprintf(w, "  - %s\n", truncate(f, 200))
			}
			fmt.Fprintf(w, "\n")
		}
	}

	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
	if results.AllPassed() {
		fmt.Fprintf(w, "  ✓ ALL TESTS PASSED\n")
	} else {
		fmt.Fprintf(w, "  ✗ SOME TESTS FAILED\n")
	}
	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "\n")

	return nil
}

// generateJSON creates a JSON report
func (r *Reporter) generateJSON(results *SuiteResults, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// generateJUnit creates a JUnit XML report
func (r *Reporter) generateJUnit(results *SuiteResults, w io.Writer) error {
	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(w, "<testsuite name=\"%s\" tests=\"%d\" failures=\"%d\" time=\"%.3f\">\n",
		escapeXML(results.SuiteName), results.TotalTests, results.FailedTests, results.Duration.Seconds())

	for _, result := range results.Results {
		fmt.Fprintf(w, "  <testcase name=\"%s\" time=\"%.3f\">\n",
			escapeXML(result.TestName), result.Duration.Seconds())

		if !result.Passed {
			fmt.Fprintf(w, "    <failure message=\"%s\">\n", escapeXML(result.ErrorMessage))
			for _, f := range result.Failures {
				fmt.Fprintf(w, "      %s\n", escapeXML(f))
			}
			fmt.Fprintf(w, "    </failure>\n")
		}

		fmt.Fprintf(w, "  </testcase>\n")
	}

	fmt.Fprintf(w, "</testsuite>\n")
	return nil
}

// generateMarkdown creates a detailed Markdown report
func (r *Reporter) generateMarkdown(results *SuiteResults, w io.Writer) error {
	fmt.Fprintf(w, "# Trace Check Report: %s\n\n", results.SuiteName)
	fmt.Fprintf(w, "**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	if results.Source != "" {
		fmt.Fprintf(w, "**Trace Log:** `%s`\n\n", results.Source)
	}

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Total Tests | %d |\n", results.TotalTests)
	fmt.Fprintf(w, "| Passed | %d ✓ |\n", results.PassedTests)
	fmt.Fprintf(w, "| Failed | %d ✗ |\n", results.FailedTests)
	fmt.Fprintf(w, "| Pass Rate | %.1f%% |\n\n", results.PassRate())

	if results.AllPassed() {
		fmt.Fprintf(w, "### ✓ All Tests Passed\n\n")
	} else {
		fmt.Fprintf(w, "### ✗ Some Tests Failed\n\n")
	}

	fmt.Fprintf(w, "## Test Results\n\n")

	for i, result := range results.Results {
		if result.Passed {
			fmt.Fprintf(w, "### %d. ✓ %s\n\n", i+1, result.TestName)
		} else {
			fmt.Fprintf(w, "### %d. ✗ %s\n\n", i+1, result.TestName)
		}

		fmt.Fprintf(w, "**Spans checked:** %d\n\n", result.SpanCount)
		if result.TraceID != "" {
			fmt.Fprintf(w, "**Trace ID:** `%s`\n\n", result.TraceID)
		}

		if !result.Passed {
			fmt.Fprintf(w, "**Failures:**\n\n")
			for _, f := range result.Failures {
				fmt.Fprintf(w, "- %s\n", f)
			}
			fmt.Fprintf(w, "\n")
		}

		if len(result.Metadata) > 0 {
			fmt.Fprintf(w, "**Metadata:**\n\n")
			for k, v := range result.Metadata {
				fmt.Fprintf(w, "- **%s:** %v\n", k, v)
			}
			fmt.Fprintf(w, "\n")
		}

		fmt.Fprintf(w, "---\n\n")
	}

	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
