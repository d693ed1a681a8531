package tracetree

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// maxLineBytes bounds a single JSONL line when scanning a reader.
const maxLineBytes = 16 * 1024 * 1024

// maxErrorContent is how much of a bad line is kept for diagnostics.
const maxErrorContent = 120

// ErrNoValidRecords is returned when decoding yields nothing usable.
var ErrNoValidRecords = errors.New("no valid records found")

// ErrLineTooLong marks a skipped line longer than maxLineBytes.
var ErrLineTooLong = fmt.Errorf("line exceeds %d bytes", maxLineBytes)

// Record is one decoded JSONL object.
type Record struct {
	Line   int
	Raw    json.RawMessage
	Fields map[string]json.RawMessage
}

// String returns the string value of a top-level field, or "" if it is
// missing or not a string.
func (r Record) String(key string) string {
	raw, ok := r.Fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// LineError describes a line that failed to decode.
type LineError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Err     error  `json:"-"`
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// MarshalJSON includes the error text, which encoding/json would drop.
func (e LineError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Line    int    `json:"line"`
		Content string `json:"content"`
		Error   string `json:"error"`
	}{e.Line, e.Content, msg})
}

// DecodeLines splits text into lines and decodes each non-blank line as a
// JSON object. Bad lines are skipped and returned as LineErrors.
func DecodeLines(text string, opts ...Option) ([]Record, []LineError) {
	o := newOptions(opts)
	d := lineDecoder{log: o.logger}
	for i, line := range strings.Split(text, "\n") {
		d.decode(i+1, line)
	}
	return d.records, d.skipped
}

// DecodeReader is DecodeLines over a reader. A line longer than
// maxLineBytes is skipped with ErrLineTooLong. Only read failures are
// returned as an error.
func DecodeReader(r io.Reader, opts ...Option) ([]Record, []LineError, error) {
	o := newOptions(opts)
	d := lineDecoder{log: o.logger}

	br := bufio.NewReaderSize(r, 64*1024)
	for n := 1; ; n++ {
		line, tooLong, err := readLine(br, maxLineBytes)
		if err != nil && err != io.EOF {
			return d.records, d.skipped, fmt.Errorf("failed to read input: %w", err)
		}
		if err == io.EOF && len(line) == 0 && !tooLong {
			break
		}

		if tooLong {
			d.skip(n, string(line), ErrLineTooLong)
		} else {
			d.decode(n, string(line))
		}
		if err == io.EOF {
			break
		}
	}
	return d.records, d.skipped, nil
}

// readLine reads up to and including the next newline. A line over limit
// bytes is consumed to its end and only its head is returned.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > limit {
				tooLong = true
				line = append([]byte(nil), line[:maxErrorContent+1]...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, tooLong, err
	}
}

type lineDecoder struct {
	log     zerolog.Logger
	records []Record
	skipped []LineError
}

func (d *lineDecoder) decode(n int, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		d.skip(n, line, err)
		return
	}
	if fields == nil {
		d.skip(n, line, errors.New("expected a JSON object, got null"))
		return
	}

	d.records = append(d.records, Record{
		Line:   n,
		Raw:    json.RawMessage(line),
		Fields: fields,
	})
}

func (d *lineDecoder) skip(n int, line string, err error) {
	content := line
	if len(content) > maxErrorContent {
		content = content[:maxErrorContent] + "..."
	}
	d.log.Warn().Int("line", n).Err(err).Msg("skipping malformed line")
	d.skipped = append(d.skipped, LineError{Line: n, Content: content, Err: err})
}
