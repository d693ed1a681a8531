package render

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// Inspect prints every detail of one span.
func Inspect(w io.Writer, span *tracetree.Span) error {
	ew := &errWriter{w: w}

	ew.printf("%s %s\n", Icon(span.SpanData.Kind), DisplayName(span))
	ew.printf("%s\n", strings.Repeat("─", 60))

	field := func(label, value string) {
		if value != "" {
			ew.printf("%-12s %s\n", label+":", value)
		}
	}
	field("ID", span.ID)
	field("Trace", span.TraceID)
	field("Parent", span.ParentID)
	field("Type", span.SpanData.Type)
	field("Status", string(span.Status))
	field("Duration", FormatDuration(span.Duration))
	field("Started", span.Start.Raw)
	if span.End != nil {
		field("Ended", span.End.Raw)
	}
	if span.MatchedBy != tracetree.MatchNone {
		field("Matched by", string(span.MatchedBy))
	}
	field("Tool", span.Tool)
	field("Model", span.SpanData.Model())
	if span.SpanData.Agent != nil {
		field("Output type", span.SpanData.Agent.OutputType)
	}

	section := func(title string, raw json.RawMessage) {
		if len(raw) == 0 {
			return
		}
		ew.printf("\n%s\n%s\n", title, PrettyJSON(raw))
	}
	section("📥 Input", firstPresent(span.Input, span.Prompt))
	section("📤 Output", firstPresent(span.Output, span.Completion))
	section("❌ Error", span.Error)

	if cfg, err := json.Marshal(span.SpanData); err == nil && string(cfg) != "{}" && string(cfg) != "null" {
		section("⚙️ Configuration", cfg)
	}
	return ew.err
}

func firstPresent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
