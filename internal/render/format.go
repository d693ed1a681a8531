// Package render turns reconstructed traces into text for terminals and files.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// RunningLabel is shown instead of a duration for unfinished spans.
const RunningLabel = "Running..."

// FormatDuration renders seconds with two decimals, or RunningLabel when d
// is nil.
func FormatDuration(d *time.Duration) string {
	if d == nil {
		return RunningLabel
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// DisplayName is the span_data name, else its type, else "Unknown Span".
func DisplayName(span *tracetree.Span) string {
	if name := span.SpanData.Name(); name != "" {
		return name
	}
	if span.SpanData.Type != "" {
		return span.SpanData.Type
	}
	return "Unknown Span"
}

// ShortModel is the model family: everything before the first "-".
func ShortModel(model string) string {
	family, _, _ := strings.Cut(model, "-")
	return family
}

// Icon is the glyph for a span kind.
func Icon(kind tracetree.SpanKind) string {
	switch kind {
	case tracetree.KindAgent:
		return "🤖"
	case tracetree.KindGeneration:
		return "⚡"
	case tracetree.KindFunction:
		return "🔧"
	default:
		return "📄"
	}
}

// StatusSymbol is the one-character status marker.
func StatusSymbol(status tracetree.Status) string {
	switch status {
	case tracetree.StatusCompleted:
		return "✓"
	case tracetree.StatusError:
		return "✗"
	default:
		return "…"
	}
}

// PrettyJSON indents raw JSON. Strings holding JSON are decoded first, so a
// tool input like "{\"query\": 1}" prints as an object.
func PrettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		trimmed := strings.TrimSpace(s)
		if json.Valid([]byte(trimmed)) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
			raw = json.RawMessage(trimmed)
		} else {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Truncate shortens s to max runes, adding "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
