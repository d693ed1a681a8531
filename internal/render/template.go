package render

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// SpanContext is the data passed to a span template.
type SpanContext struct {
	Span  *tracetree.Span
	Depth int
	Trace *tracetree.Trace
}

// Template executes text once per span in depth-first order. Besides the
// sprig functions it provides duration, name, shortModel and prettyJSON.
func Template(w io.Writer, res *tracetree.Result, text string) error {
	tmpl, err := template.New("span").Funcs(funcMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var execErr error
	res.Walk(func(span *tracetree.Span, depth int) bool {
		if execErr != nil {
			return false
		}
		data := SpanContext{Span: span, Depth: depth, Trace: res.TraceByID(span.TraceID)}
		if err := tmpl.Execute(w, data); err != nil {
			execErr = fmt.Errorf("span %s: %w", span.ID, err)
			return false
		}
		return true
	})
	return execErr
}

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["duration"] = FormatDuration
	fm["name"] = DisplayName
	fm["shortModel"] = ShortModel
	fm["prettyJSON"] = func(raw json.RawMessage) string { return PrettyJSON(raw) }
	return fm
}
