package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ArthurBrioche/Agent-tracing/internal/audit"
	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// RunnerConfig configures the test runner
type RunnerConfig struct {
	Verbose  bool
	FailFast bool
	Out      io.Writer // progress output when Verbose is set
}

// Runner evaluates test suites against a reconstruction
type Runner struct {
	config  *RunnerConfig
	matcher *Matcher
}

// NewRunner creates a new test runner
func NewRunner(config *RunnerConfig) *Runner {
	if config == nil {
		config = &RunnerConfig{}
	}
	if config.Out == nil {
		config.Out = io.Discard
	}
	return &Runner{
		config:  config,
		matcher: NewMatcher(),
	}
}

// Run executes a test suite and returns results
func (r *Runner) Run(suite *TestSuite, res *tracetree.Result) *SuiteResults {
	results := &SuiteResults{
		SuiteName:  suite.Name,
		TotalTests: len(suite.Tests),
		StartTime:  time.Now(),
		Results:    make([]TestResult, 0, len(suite.Tests)),
	}

	for i, test := range suite.Tests {
		if r.config.Verbose {
			fmt.Fprintf(r.config.Out, "\n[%d/%d] Running: %s\n", i+1, len(suite.Tests), test.Name)
		}

		result := r.runTest(test, res)
		results.Results = append(results.Results, result)

		if result.Passed {
			results.PassedTests++
			if r.config.Verbose {
				fmt.Fprintf(r.config.Out, "  ✓ PASSED (%d spans)\n", result.SpanCount)
			}
		} else {
			results.FailedTests++
			if r.config.Verbose {
				fmt.Fprintf(r.config.Out, "  ✗ FAILED: %s\n", result.ErrorMessage)
			}

			if r.config.FailFast {
				break
			}
		}
	}

	results.EndTime = time.Now()
	results.Duration = results.EndTime.Sub(results.StartTime)

	return results
}

// scope is the depth-first span list a test runs against.
type scope struct {
	spans []*tracetree.Span
}

func newScope(res *tracetree.Result, traceID string) scope {
	var s scope
	res.Walk(func(span *tracetree.Span, _ int) bool {
		if traceID == "" || span.TraceID == traceID {
			s.spans = append(s.spans, span)
		}
		return true
	})
	return s
}

func (s scope) find(e SpanExpectation) *tracetree.Span {
	for _, span := range s.spans {
		if e.ID != "" && span.ID == e.ID {
			return span
		}
		if e.ID == "" && render.DisplayName(span) == e.Name {
			return span
		}
	}
	return nil
}

// runTest checks a single test's expectations
func (r *Runner) runTest(test Test, res *tracetree.Result) TestResult {
	start := time.Now()
	result := TestResult{
		TestName: test.Name,
		TraceID:  test.Trace,
		Metadata: test.Metadata,
	}

	sc := newScope(res, test.Trace)
	result.SpanCount = len(sc.spans)
	result.Failures = r.check(test.Expect, sc)
	result.Duration = time.Since(start)

	if len(result.Failures) > 0 {
		result.ErrorMessage = strings.Join(result.Failures, "; ")
		return result
	}
	result.Passed = true
	return result
}

func (r *Runner) check(e Expectation, sc scope) []string {
	var failures []string
	fail := func(format string, args ...interface{}) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	var tools, path []string
	generations := 0
	for _, span := range sc.spans {
		kind := span.SpanData.Kind
		path = append(path, string(kind))
		switch kind {
		case tracetree.KindFunction:
			tools = append(tools, audit.ToolName(span))
		case tracetree.KindGeneration:
			generations++
		}

		if e.NoErrors && span.Failed() {
			fail("span %s (%s) ended with an error", span.ID, render.DisplayName(span))
		}
		if e.AllCompleted && span.Running() {
			fail("span %s (%s) is still running", span.ID, render.DisplayName(span))
		}
	}

	if len(e.ToolCalls) > 0 {
		if ok, missing := isSubsequence(e.ToolCalls, tools); !ok {
			fail("tool call %q not found in order; actual calls: %v", missing, tools)
		}
	}
	if len(e.ExecutionPath) > 0 {
		if ok, missing := isSubsequence(e.ExecutionPath, path); !ok {
			fail("execution path step %q not found in order; actual path: %v", missing, path)
		}
	}
	if e.Generations != nil && generations != *e.Generations {
		fail("expected %d generations, got %d", *e.Generations, generations)
	}
	if e.MinSpans > 0 && len(sc.spans) < e.MinSpans {
		fail("expected at least %d spans, got %d", e.MinSpans, len(sc.spans))
	}
	if e.MaxSpans > 0 && len(sc.spans) > e.MaxSpans {
		fail("expected at most %d spans, got %d", e.MaxSpans, len(sc.spans))
	}

	for _, se := range e.Spans {
		span := sc.find(se)
		if span == nil {
			fail("%s not found", se.label())
			continue
		}
		if se.Status != "" && string(span.Status) != se.Status {
			fail("%s: expected status %s, got %s", se.label(), se.Status, span.Status)
		}
		if se.Type != "" && span.SpanData.Type != se.Type {
			fail("%s: expected type %s, got %s", se.label(), se.Type, span.SpanData.Type)
		}
		if se.Output != nil {
			if ok, msg := r.matcher.Match(outputText(span), *se.Output); !ok {
				fail("%s: %s", se.label(), msg)
			}
		}
	}

	return failures
}

// outputText is the span's output, falling back to its completion. JSON
// strings are unquoted; anything else is the raw JSON text.
func outputText(span *tracetree.Span) string {
	raw := span.Output
	if len(raw) == 0 {
		raw = span.Completion
	}
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
