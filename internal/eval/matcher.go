package eval

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher validates span outputs against expectations
type Matcher struct{}

// NewMatcher creates a new matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match checks if actual output matches the expectation
func (m *Matcher) Match(actual string, expect OutputExpectation) (bool, string) {
	switch expect.Type {
	case "exact":
		return m.matchExact(actual, expect.Value)
	case "contains":
		values := expect.Values
		if len(values) == 0 && expect.Value != "" {
			values = []string{expect.Value}
		}
		return m.matchContains(actual, values)
	case "regex":
		return m.matchRegex(actual, expect.Pattern)
	default:
		return false, fmt.Sprintf("unknown expectation type: %s", expect.Type)
	}
}

// matchExact checks for exact string match
func (m *Matcher) matchExact(actual, expected string) (bool, string) {
	if actual == expected {
		return true, ""
	}
	return false, fmt.Sprintf("expected exact match:\n  Expected: %s\n  Actual:   %s", expected, actual)
}

// matchContains checks if actual contains all expected values
func (m *Matcher) matchContains(actual string, values []string) (bool, string) {
	actualLower := strings.ToLower(actual)
	var missing []string

	for _, value := range values {
		if !strings.Contains(actualLower, strings.ToLower(value)) {
			missing = append(missing, value)
		}
	}

	if len(missing) > 0 {
		return false, fmt.Sprintf("missing expected values: %v", missing)
	}

	return true, ""
}

// matchRegex checks if actual matches the regex pattern
func (m *Matcher) matchRegex(actual, pattern string) (bool, string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(actual) {
		return true, ""
	}

	return false, fmt.Sprintf("output does not match regex pattern: %s", pattern)
}

// isSubsequence reports whether want appears in got in order, not
// necessarily adjacent. It returns the first unmatched element.
func isSubsequence(want, got []string) (bool, string) {
	i := 0
	for _, g := range got {
		if i < len(want) && g == want[i] {
			i++
		}
	}
	if i == len(want) {
		return true, ""
	}
	return false, want[i]
}
