package eval

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// ParseSuiteFile parses a YAML suite file into a TestSuite
func ParseSuiteFile(filePath string) (*TestSuite, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite parses and validates suite YAML
func ParseSuite(data []byte) (*TestSuite, error) {
	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &suite, nil
}

// validateSuite validates the test suite structure
func validateSuite(suite *TestSuite) error {
	if suite.Name == "" {
		return fmt.Errorf("suite name is required")
	}

	if len(suite.Tests) == 0 {
		return fmt.Errorf("at least one test is required")
	}

	for i, test := range suite.Tests {
		if test.Name == "" {
			return fmt.Errorf("test %d: name is required", i)
		}
		if err := validateExpectation(test.Expect); err != nil {
			return fmt.Errorf("test '%s': %w", test.Name, err)
		}
	}

	return nil
}

func validateExpectation(e Expectation) error {
	if e.empty() {
		return fmt.Errorf("expect must contain at least one assertion")
	}
	if e.MinSpans < 0 || e.MaxSpans < 0 {
		return fmt.Errorf("min_spans and max_spans cannot be negative")
	}
	if e.MaxSpans > 0 && e.MinSpans > e.MaxSpans {
		return fmt.Errorf("min_spans (%d) is greater than max_spans (%d)", e.MinSpans, e.MaxSpans)
	}
	if e.Generations != nil && *e.Generations < 0 {
		return fmt.Errorf("generations cannot be negative")
	}

	for i, s := range e.Spans {
		if s.ID == "" && s.Name == "" {
			return fmt.Errorf("expect.spans[%d]: id or name is required", i)
		}
		switch tracetree.Status(s.Status) {
		case "", tracetree.StatusRunning, tracetree.StatusCompleted, tracetree.StatusError:
		default:
			return fmt.Errorf("expect.spans[%d]: unknown status %q", i, s.Status)
		}
		if s.Output != nil {
			if err := validateOutput(*s.Output); err != nil {
				return fmt.Errorf("expect.spans[%d].output: %w", i, err)
			}
		}
	}
	return nil
}

func validateOutput(o OutputExpectation) error {
	switch o.Type {
	case "exact":
		if o.Value == "" {
			return fmt.Errorf("value is required for 'exact' type")
		}
	case "contains":
		if len(o.Values) == 0 && o.Value == "" {
			return fmt.Errorf("values is required for 'contains' type")
		}
	case "regex":
		if o.Pattern == "" {
			return fmt.Errorf("pattern is required for 'regex' type")
		}
		if _, err := regexp.Compile(o.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown type %q", o.Type)
	}
	return nil
}
