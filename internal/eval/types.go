package eval

import "time"

// TestSuite represents a collection of trace assertions
type TestSuite struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Tests       []Test            `yaml:"tests"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// Test represents a single test case
type Test struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	Trace       string                 `yaml:"trace,omitempty"` // restrict to one trace id
	Expect      Expectation            `yaml:"expect"`
	Metadata    map[string]interface{} `yaml:"metadata,omitempty"`
}

// Expectation defines what the reconstructed trace must look like
type Expectation struct {
	ToolCalls     []string          `yaml:"tool_calls,omitempty"`     // subsequence, in order
	Generations   *int              `yaml:"generations,omitempty"`    // exact count
	MinSpans      int               `yaml:"min_spans,omitempty"`
	MaxSpans      int               `yaml:"max_spans,omitempty"`
	ExecutionPath []string          `yaml:"execution_path,omitempty"` // span kinds, subsequence
	NoErrors      bool              `yaml:"no_errors,omitempty"`
	AllCompleted  bool              `yaml:"all_completed,omitempty"`
	Spans         []SpanExpectation `yaml:"spans,omitempty"`
}

func (e Expectation) empty() bool {
	return len(e.ToolCalls) == 0 && e.Generations == nil && e.MinSpans == 0 &&
		e.MaxSpans == 0 && len(e.ExecutionPath) == 0 && !e.NoErrors &&
		!e.AllCompleted && len(e.Spans) == 0
}

// SpanExpectation selects one span by id or name and checks its fields
type SpanExpectation struct {
	ID     string             `yaml:"id,omitempty"`
	Name   string             `yaml:"name,omitempty"`
	Status string             `yaml:"status,omitempty"`
	Type   string             `yaml:"type,omitempty"`
	Output *OutputExpectation `yaml:"output,omitempty"`
}

func (s SpanExpectation) label() string {
	if s.ID != "" {
		return "span " + s.ID
	}
	return "span named " + s.Name
}

// OutputExpectation matches a span's output text
type OutputExpectation struct {
	Type    string   `yaml:"type"` // exact, contains, regex
	Value   string   `yaml:"value,omitempty"`
	Values  []string `yaml:"values,omitempty"`
	Pattern string   `yaml:"pattern,omitempty"`
}

// TestResult represents the result of a single test
type TestResult struct {
	TestName     string                 `json:"test_name"`
	Passed       bool                   `json:"passed"`
	Duration     time.Duration          `json:"duration"`
	SpanCount    int                    `json:"span_count"`
	Failures     []string               `json:"failures,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	TraceID      string                 `json:"trace_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// SuiteResults represents results for an entire test suite
type SuiteResults struct {
	SuiteName   string        `json:"suite_name"`
	Source      string        `json:"source,omitempty"`
	TotalTests  int           `json:"total_tests"`
	PassedTests int           `json:"passed_tests"`
	FailedTests int           `json:"failed_tests"`
	Duration    time.Duration `json:"duration"`
	Results     []TestResult  `json:"results"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
}

// AllPassed returns true if all tests passed
func (sr *SuiteResults) AllPassed() bool {
	return sr.FailedTests == 0
}

// PassRate returns the pass rate as a percentage
func (sr *SuiteResults) PassRate() float64 {
	if sr.TotalTests == 0 {
		return 0
	}
	return float64(sr.PassedTests) / float64(sr.TotalTests) * 100
}
