package tracetree

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLines(t *testing.T) {
	text := "{\"event\":\"a\"}\r\n\n   \n{bad\n\"just a string\"\nnull\n  {\"event\":\"b\",\"n\":1}  "

	records, skipped := DecodeLines(text)

	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, "a", records[0].String("event"))
	assert.Equal(t, 7, records[1].Line)
	assert.Equal(t, "b", records[1].String("event"))
	assert.Equal(t, "", records[1].String("n"))
	assert.Equal(t, "", records[1].String("missing"))

	require.Len(t, skipped, 3)
	assert.Equal(t, []int{4, 5, 6}, []int{skipped[0].Line, skipped[1].Line, skipped[2].Line})
	assert.Equal(t, "{bad", skipped[0].Content)
}

func TestDecodeLines_TruncatesLongContent(t *testing.T) {
	line := "{" + strings.Repeat("x", 500)

	_, skipped := DecodeLines(line)

	require.Len(t, skipped, 1)
	assert.Len(t, skipped[0].Content, maxErrorContent+3)
	assert.True(t, strings.HasSuffix(skipped[0].Content, "..."))
}

func TestDecodeLines_LogsSkippedLines(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	DecodeLines("{\"ok\":true}\nnope", WithLogger(logger))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(2), entry["line"])
	assert.Equal(t, "skipping malformed line", entry["message"])
}

func TestDecodeReader(t *testing.T) {
	big := `{"event":"span_end","output":"` + strings.Repeat("y", 200*1024) + `"}`
	input := "{\"event\":\"trace_start\"}\r\n" + big + "\nnot json\n"

	records, skipped, err := DecodeReader(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[1].Line)
	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Line)
}

func TestDecodeReader_SkipsOverlongLine(t *testing.T) {
	huge := `{"event":"span_end","span_id":"a","output":"` + strings.Repeat("z", maxLineBytes+1024) + `"}`
	input := jsonl(
		`{"event":"span_start","timestamp":"2025-01-01T00:00:00","span":{"id":"a"}}`,
		huge,
		`{"event":"trace_end","timestamp":"2025-01-01T00:00:02","trace":{"id":"t"}}`,
	)

	records, skipped, err := DecodeReader(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, 3, records[1].Line)
	require.Len(t, skipped, 1)
	assert.Equal(t, 2, skipped[0].Line)
	assert.ErrorIs(t, skipped[0].Err, ErrLineTooLong)
	assert.True(t, strings.HasPrefix(skipped[0].Content, `{"event":"span_end"`))
	assert.Len(t, skipped[0].Content, maxErrorContent+3)

	res, err := ReconstructReader(strings.NewReader(input))
	require.NoError(t, err)
	span := res.Find("a")
	require.NotNil(t, span)
	assert.Equal(t, StatusRunning, span.Status)
}

func TestReadLine(t *testing.T) {
	br := bufio.NewReaderSize(strings.NewReader("short\r\n"+strings.Repeat("x", 300)+"\ntail"), 16)

	line, tooLong, err := readLine(br, 200)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "short\r\n", string(line))

	line, tooLong, err = readLine(br, 200)
	require.NoError(t, err)
	assert.True(t, tooLong)
	assert.Len(t, line, maxErrorContent+1)

	line, tooLong, err = readLine(br, 200)
	assert.Equal(t, io.EOF, err)
	assert.False(t, tooLong)
	assert.Equal(t, "tail", string(line))
}

func TestLineError_MarshalJSON(t *testing.T) {
	_, skipped := DecodeLines("oops")
	require.Len(t, skipped, 1)

	out, err := json.Marshal(skipped[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, float64(1), decoded["line"])
	assert.Equal(t, "oops", decoded["content"])
	assert.NotEmpty(t, decoded["error"])
}
