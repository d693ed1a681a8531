package render

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

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

func TestFormatDuration(t *testing.T) {
	d := 2500 * time.Millisecond
	assert.Equal(t, "2.50s", FormatDuration(&d))
	assert.Equal(t, "Running...", FormatDuration(nil))

	neg := -1234 * time.Millisecond
	assert.Equal(t, "-1.23s", FormatDuration(&neg))
}

func TestDisplayName(t *testing.T) {
	named := &tracetree.Span{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"function","name":"web_search"}`), &named.SpanData))
	assert.Equal(t, "web_search", DisplayName(named))

	typed := &tracetree.Span{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"generation"}`), &typed.SpanData))
	assert.Equal(t, "generation", DisplayName(typed))

	assert.Equal(t, "Unknown Span", DisplayName(&tracetree.Span{}))
}

func TestShortModel(t *testing.T) {
	assert.Equal(t, "gpt", ShortModel("gpt-4.1-mini"))
	assert.Equal(t, "claude", ShortModel("claude"))
	assert.Equal(t, "", ShortModel(""))
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", PrettyJSON(json.RawMessage(`{"a":1}`)))
	assert.Equal(t, "{\n  \"query\": \"Amundi AUM\"\n}", PrettyJSON(json.RawMessage(`"{\"query\": \"Amundi AUM\"}"`)))
	assert.Equal(t, "plain text", PrettyJSON(json.RawMessage(`"plain text"`)))
	assert.Equal(t, "", PrettyJSON(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
}

func TestTree_TreeMode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, loadRun(t), TreeOptions{Mode: ModeTree}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Attribute Research Workflow (trace_25e2e648648c4d6eb8b582ca91292c5f)", lines[0])
	assert.Equal(t, "🤖 AttributeResearchAgent 2.68s ✓", lines[1])
	assert.Equal(t, "├── ⚡ generation [gpt] 2.68s ✓", lines[2])
	assert.Equal(t, "└── 🔧 web_search [web_search] 0.00s ✓", lines[3])
}

func TestTree_TimelineMode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, loadRun(t), TreeOptions{Mode: ModeTimeline}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "  ⚡ generation  2.68s [gpt-4.1-mini]  completed", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "  🔧 web_search"))
}

func TestTree_TraceFilter(t *testing.T) {
	res := loadRun(t)

	var buf bytes.Buffer
	assert.Error(t, Tree(&buf, res, TreeOptions{TraceID: "nope"}))

	buf.Reset()
	require.NoError(t, Tree(&buf, res, TreeOptions{TraceID: "trace_25e2e648648c4d6eb8b582ca91292c5f"}))
	assert.Contains(t, buf.String(), "AttributeResearchAgent")
}

func TestTree_UntracedAndRunning(t *testing.T) {
	res, err := tracetree.ReconstructText(strings.Join([]string{
		`{"event":"span_start","timestamp":"2025-01-01T00:00:00","span":{"id":"a","span_data":{"type":"function","name":"lookup"}}}`,
		`{"event":"span_start","timestamp":"2025-01-01T00:00:00","span":{"id":"b","span_data":{"type":"function","name":"fetch"}}}`,
		`{"event":"span_end","timestamp":"2025-01-01T00:00:01","span_type":"function"}`,
	}, "\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, res, TreeOptions{}))

	assert.Equal(t,
		"🔧 lookup 1.00s ✓ (matched by type)\n🔧 fetch Running... …\n",
		buf.String())
}

func TestInspect(t *testing.T) {
	res := loadRun(t)

	var buf bytes.Buffer
	require.NoError(t, Inspect(&buf, res.Find("span_31ebdbd71a6247e4825ac4e1")))

	out := buf.String()
	assert.Contains(t, out, "🔧 web_search")
	assert.Contains(t, out, "Status:      completed")
	assert.Contains(t, out, "Tool:        web_search")
	assert.Contains(t, out, "Matched by:  explicit")
	assert.Contains(t, out, "\"query\": \"Amundi AUM\"")
	assert.Contains(t, out, "Amundi Asset Management")
	assert.NotContains(t, out, "Error")
}

func TestTemplate(t *testing.T) {
	res := loadRun(t)

	var buf bytes.Buffer
	err := Template(&buf, res, `{{ indent (mul .Depth 2 | int) "" }}{{ name .Span | upper }} {{ duration .Span.Duration }} {{ .Trace.WorkflowName }}{{ "\n" }}`)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ATTRIBUTERESEARCHAGENT 2.68s Attribute Research Workflow", lines[0])
	assert.Equal(t, "  GENERATION 2.68s Attribute Research Workflow", lines[1])
}

func TestTemplate_Errors(t *testing.T) {
	res := loadRun(t)
	var buf bytes.Buffer

	assert.Error(t, Template(&buf, res, "{{ .Span.ID "))
	assert.Error(t, Template(&buf, res, "{{ .Span.Missing }}"))
}
