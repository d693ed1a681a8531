package tracetree

// resolveEnd finds the span an end event refers to. An explicit span_id is
// authoritative: when it is set the type heuristic is never consulted, even
// if the id is unknown.
func (r *registry) resolveEnd(ev Event) (*Span, MatchMode) {
	if ev.SpanID != "" {
		if span, ok := r.spans[ev.SpanID]; ok {
			return span, MatchExplicit
		}
		return nil, MatchNone
	}
	if span := r.firstRunning(ev.SpanType); span != nil {
		return span, MatchHeuristic
	}
	return nil, MatchNone
}

// firstRunning returns the earliest registered running span of the given
// span_data.type.
func (r *registry) firstRunning(spanType string) *Span {
	if spanType == "" {
		return nil
	}
	for _, span := range r.order {
		if span.Status == StatusRunning && span.SpanData.Type == spanType {
			return span
		}
	}
	return nil
}
