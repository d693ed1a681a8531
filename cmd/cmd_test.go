package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurBrioche/Agent-tracing/internal/config"
	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

const (
	researchRun   = "../pkg/tracetree/testdata/research_run.jsonl"
	researchSuite = "../internal/eval/testdata/research_suite.yaml"
)

// resetFlags restores every flag to its default between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent-trace.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"error\"\nformat = \"json\"\n"), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", quietConfig(t)}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agent-trace")
	assert.Contains(t, out, "Version:")
}

func TestTree(t *testing.T) {
	out, err := execute(t, "tree", researchRun)
	require.NoError(t, err)
	assert.Contains(t, out, "Attribute Research Workflow (trace_25e2e648648c4d6eb8b582ca91292c5f)")
	assert.Contains(t, out, "AttributeResearchAgent")
	assert.Contains(t, out, "web_search")
	assert.NotContains(t, out, "\x1b[", "no color when not writing to a terminal")
}

func TestTree_UnknownTrace(t *testing.T) {
	_, err := execute(t, "tree", researchRun, "--trace", "trace_missing")
	var ue *utils.UserError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Message, "trace_missing")
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect", researchRun, "span_31ebdbd71a6247e4825ac4e1")
	require.NoError(t, err)
	assert.Contains(t, out, "span_31ebdbd71a6247e4825ac4e1")
	assert.Contains(t, out, "web_search")
	assert.Contains(t, out, "Amundi AUM")
}

func TestInspect_NotFound(t *testing.T) {
	_, err := execute(t, "inspect", researchRun, "span_nope")
	var ue *utils.UserError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Span not found: span_nope", ue.Message)
}

func TestStats_JSON(t *testing.T) {
	out, err := execute(t, "stats", researchRun, "--json")
	require.NoError(t, err)

	var body struct {
		Diagnostics tracetree.Diagnostics `json:"diagnostics"`
		Audit       struct {
			Summary struct {
				TotalSpans int `json:"total_spans"`
			} `json:"summary"`
			ToolCalls []string `json:"tool_calls"`
		} `json:"audit"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 8, body.Diagnostics.Records)
	assert.Equal(t, 3, body.Audit.Summary.TotalSpans)
	assert.Equal(t, []string{"web_search"}, body.Audit.ToolCalls)
}

func TestStats_Text(t *testing.T) {
	out, err := execute(t, "stats", researchRun)
	require.NoError(t, err)
	assert.Contains(t, out, "Records:")
	assert.Contains(t, out, "Attribute Research Workflow")
	assert.Contains(t, out, "3.63s")
}

func TestNoValidRecords(t *testing.T) {
	path := writeTemp(t, "broken.jsonl", "not json\n[1,2]\n")
	_, err := execute(t, "tree", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, tracetree.ErrNoValidRecords)
}

func TestMissingFile(t *testing.T) {
	_, err := execute(t, "stats", filepath.Join(t.TempDir(), "missing.jsonl"))
	var ue *utils.UserError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Message, "Trace file not found")
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", researchRun, researchSuite)
	require.NoError(t, err)
	assert.Contains(t, out, "Attribute research")
}

func TestCheck_Failing(t *testing.T) {
	suite := writeTemp(t, "suite.yaml", `name: strict
tests:
  - name: tiny
    expect:
      max_spans: 1
`)
	out, err := execute(t, "check", researchRun, suite, "--format", "json")

	var failed *errChecksFailed
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 1, failed.failed)

	var results struct {
		FailedTests int `json:"failed_tests"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Equal(t, 1, results.FailedTests)
}

func TestCheck_ValidateOnly(t *testing.T) {
	_, err := execute(t, "check", "does-not-matter.jsonl", researchSuite, "--validate-only")
	assert.NoError(t, err)
}

func TestExport_Mermaid(t *testing.T) {
	out, err := execute(t, "export", researchRun, "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart")
	assert.Contains(t, out, "AttributeResearchAgent")
}

func TestExport_Template(t *testing.T) {
	out, err := execute(t, "export", researchRun, "--format", "template", "--template", `{{ .Depth }} {{ .Span.ID }}{{ "\n" }}`)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"0 span_5d6a0a3fee004971a2ec85c9",
		"1 span_9f8c565f210e49fd91e3dafa",
		"1 span_31ebdbd71a6247e4825ac4e1",
	}, "\n")+"\n", out)
}

func TestExport_JSONToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "run.json")
	_, err := execute(t, "export", researchRun, "--output", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"span_5d6a0a3fee004971a2ec85c9"`)
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := execute(t, "export", researchRun, "--format", "zipkin")
	var ue *utils.UserError
	require.True(t, errors.As(err, &ue))
}

func TestExport_OTLPStdout(t *testing.T) {
	out, err := execute(t, "export", researchRun, "--format", "otlp", "--exporter", "stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "AttributeResearchAgent")
	assert.Contains(t, out, "agent.span.id")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-trace.toml")

	_, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = execute(t, "config", "init", "--path", path)
	require.Error(t, err)

	_, err = execute(t, "config", "init", "--path", path, "--force")
	assert.NoError(t, err)
}

func TestDuplicateSpansFlag(t *testing.T) {
	path := writeTemp(t, "dup.jsonl", strings.Join([]string{
		`{"event":"span_start","timestamp":"2025-01-01T00:00:00","span":{"id":"a","span_data":{"type":"function","name":"first"}}}`,
		`{"event":"span_start","timestamp":"2025-01-01T00:00:01","span":{"id":"a","span_data":{"type":"function","name":"second"}}}`,
	}, "\n"))

	out, err := execute(t, "tree", path)
	require.NoError(t, err)
	assert.Contains(t, out, "second")

	out, err = execute(t, "tree", path, "--duplicate-spans", "keep-first")
	require.NoError(t, err)
	assert.Contains(t, out, "first")
	assert.NotContains(t, out, "second")
}

func TestInvalidDuplicateSpans(t *testing.T) {
	_, err := execute(t, "tree", researchRun, "--duplicate-spans", "merge")
	var ue *utils.UserError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Invalid configuration", ue.Message)
}
