package eval

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

func loadRun(t *testing.T) *tracetree.Result {
	t.Helper()
	data, err := os.ReadFile("../../pkg/tracetree/testdata/research_run.jsonl")
	require.NoError(t, err)
	res, err := tracetree.ReconstructText(string(data))
	require.NoError(t, err)
	return res
}

func TestParseSuiteFile(t *testing.T) {
	suite, err := ParseSuiteFile("testdata/research_suite.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Attribute research", suite.Name)
	require.Len(t, suite.Tests, 3)
	require.NotNil(t, suite.Tests[0].Expect.Generations)
	assert.Equal(t, 1, *suite.Tests[0].Expect.Generations)
	assert.Equal(t, "trace_25e2e648648c4d6eb8b582ca91292c5f", suite.Tests[1].Trace)
	require.Len(t, suite.Tests[2].Expect.Spans, 2)
	assert.Equal(t, "regex", suite.Tests[2].Expect.Spans[1].Output.Type)
}

func TestParseSuite_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "tests: [{name: a, expect: {no_errors: true}}]", "suite name is required"},
		{"no tests", "name: s", "at least one test"},
		{"unnamed test", "name: s\ntests: [{expect: {no_errors: true}}]", "name is required"},
		{"empty expect", "name: s\ntests: [{name: a}]", "at least one assertion"},
		{"min over max", "name: s\ntests: [{name: a, expect: {min_spans: 5, max_spans: 2}}]", "greater than max_spans"},
		{"span selector", "name: s\ntests: [{name: a, expect: {spans: [{status: completed}]}}]", "id or name is required"},
		{"bad status", "name: s\ntests: [{name: a, expect: {spans: [{id: x, status: done}]}}]", "unknown status"},
		{"bad regex", "name: s\ntests: [{name: a, expect: {spans: [{id: x, output: {type: regex, pattern: '('}}]}}]", "invalid regex"},
		{"bad output type", "name: s\ntests: [{name: a, expect: {spans: [{id: x, output: {type: semantic, value: v}}]}}]", "unknown type"},
		{"bad yaml", "name: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunner_ResearchSuitePasses(t *testing.T) {
	suite, err := ParseSuiteFile("testdata/research_suite.yaml")
	require.NoError(t, err)

	results := NewRunner(nil).Run(suite, loadRun(t))
	for _, r := range results.Results {
		assert.True(t, r.Passed, "%s: %v", r.TestName, r.Failures)
	}
	assert.True(t, results.AllPassed())
	assert.Equal(t, 3, results.PassedTests)
	assert.Equal(t, 100.0, results.PassRate())
}

func TestRunner_Failures(t *testing.T) {
	zero := 0
	suite := &TestSuite{
		Name: "failing",
		Tests: []Test{
			{Name: "tools", Expect: Expectation{ToolCalls: []string{"web_search", "web_search"}}},
			{Name: "generations", Expect: Expectation{Generations: &zero}},
			{Name: "size", Expect: Expectation{MaxSpans: 2}},
			{Name: "path", Expect: Expectation{ExecutionPath: []string{"function", "generation"}}},
			{Name: "missing span", Expect: Expectation{Spans: []SpanExpectation{{ID: "nope"}}}},
			{Name: "wrong status", Expect: Expectation{Spans: []SpanExpectation{{Name: "web_search", Status: "error"}}}},
			{Name: "other trace", Trace: "trace_other", Expect: Expectation{MinSpans: 1}},
		},
	}

	results := NewRunner(nil).Run(suite, loadRun(t))
	require.Len(t, results.Results, 7)
	assert.Equal(t, 7, results.FailedTests)

	msgs := make(map[string]string)
	for _, r := range results.Results {
		msgs[r.TestName] = r.ErrorMessage
	}
	assert.Contains(t, msgs["tools"], `tool call "web_search" not found in order`)
	assert.Contains(t, msgs["generations"], "expected 0 generations, got 1")
	assert.Contains(t, msgs["size"], "expected at most 2 spans, got 3")
	assert.Contains(t, msgs["path"], `step "generation"`)
	assert.Contains(t, msgs["missing span"], "span nope not found")
	assert.Contains(t, msgs["wrong status"], "expected status error, got completed")
	assert.Contains(t, msgs["other trace"], "expected at least 1 spans, got 0")
}

func TestRunner_ErrorsAndRunning(t *testing.T) {
	res, err := tracetree.ReconstructText(strings.Join([]string{
		`{"event":"span_start","timestamp":"2025-01-01T00:00:00","span":{"id":"a","span_data":{"type":"agent","name":"Planner"}}}`,
		`{"event":"span_start","timestamp":"2025-01-01T00:00:01","span":{"id":"b","parent_id":"a","span_data":{"type":"function","name":"lookup"}}}`,
		`{"event":"span_end","timestamp":"2025-01-01T00:00:02","span_id":"b","error":"timeout","output":"partial"}`,
	}, "\n"))
	require.NoError(t, err)

	suite := &TestSuite{Name: "s", Tests: []Test{
		{Name: "healthy", Expect: Expectation{NoErrors: true, AllCompleted: true}},
		{Name: "output", Expect: Expectation{Spans: []SpanExpectation{
			{ID: "b", Status: "error", Output: &OutputExpectation{Type: "exact", Value: "partial"}},
		}}},
	}}

	results := NewRunner(nil).Run(suite, res)
	require.Len(t, results.Results, 2)

	healthy := results.Results[0]
	assert.False(t, healthy.Passed)
	require.Len(t, healthy.Failures, 2)
	assert.Contains(t, healthy.Failures[0], "is still running")
	assert.Contains(t, healthy.Failures[1], "ended with an error")

	assert.True(t, results.Results[1].Passed, results.Results[1].ErrorMessage)
}

func TestRunner_FailFast(t *testing.T) {
	suite := &TestSuite{Name: "s", Tests: []Test{
		{Name: "first", Expect: Expectation{MinSpans: 10}},
		{Name: "second", Expect: Expectation{MinSpans: 1}},
	}}

	var out bytes.Buffer
	results := NewRunner(&RunnerConfig{FailFast: true, Verbose: true, Out: &out}).Run(suite, loadRun(t))
	assert.Len(t, results.Results, 1)
	assert.Contains(t, out.String(), "[1/2] Running: first")
	assert.Contains(t, out.String(), "✗ FAILED")
}

func TestMatcher(t *testing.T) {
	m := NewMatcher()

	ok, _ := m.Match("Hello World", OutputExpectation{Type: "exact", Value: "Hello World"})
	assert.True(t, ok)
	ok, msg := m.Match("Hello", OutputExpectation{Type: "exact", Value: "Bye"})
	assert.False(t, ok)
	assert.Contains(t, msg, "expected exact match")

	ok, _ = m.Match("Hello World", OutputExpectation{Type: "contains", Values: []string{"hello", "WORLD"}})
	assert.True(t, ok)
	ok, _ = m.Match("Hello World", OutputExpectation{Type: "contains", Value: "world"})
	assert.True(t, ok)
	ok, msg = m.Match("Hello", OutputExpectation{Type: "contains", Values: []string{"bye"}})
	assert.False(t, ok)
	assert.Contains(t, msg, "[bye]")

	ok, _ = m.Match("order 42", OutputExpectation{Type: "regex", Pattern: `\d+$`})
	assert.True(t, ok)
	ok, _ = m.Match("x", OutputExpectation{Type: "semantic"})
	assert.False(t, ok)
}

func TestIsSubsequence(t *testing.T) {
	ok, _ := isSubsequence([]string{"a", "c"}, []string{"a", "b", "c"})
	assert.True(t, ok)
	ok, missing := isSubsequence([]string{"c", "a"}, []string{"a", "b", "c"})
	assert.False(t, ok)
	assert.Equal(t, "a", missing)
	ok, _ = isSubsequence(nil, nil)
	assert.True(t, ok)
}

func TestReporter_Formats(t *testing.T) {
	suite := &TestSuite{Name: "R&D <suite>", Tests: []Test{
		{Name: "pass", Expect: Expectation{MinSpans: 1}},
		{Name: "fail", Expect: Expectation{MaxSpans: 1}},
	}}
	results := NewRunner(nil).Run(suite, loadRun(t))
	results.Source = "run.jsonl"

	var console bytes.Buffer
	require.NoError(t, NewReporter("console").Generate(results, &console))
	assert.Contains(t, console.String(), "TRACE CHECKS: R&D <suite>")
	assert.Contains(t, console.String(), "✗ fail")
	assert.Contains(t, console.String(), "SOME TESTS FAILED")

	var js bytes.Buffer
	require.NoError(t, NewReporter("json").Generate(results, &js))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, float64(1), decoded["failed_tests"])

	var junit bytes.Buffer
	require.NoError(t, NewReporter("junit").Generate(results, &junit))
	assert.Contains(t, junit.String(), `<testsuite name="R&amp;D &lt;suite&gt;" tests="2" failures="1"`)
	assert.Contains(t, junit.String(), "<failure message=")

	var md bytes.Buffer
	require.NoError(t, NewReporter("markdown").Generate(results, &md))
	assert.Contains(t, md.String(), "# Trace Check Report: R&D <suite>")
	assert.Contains(t, md.String(), "### 2. ✗ fail")

	assert.Error(t, NewReporter("html").Generate(results, &md))
}
