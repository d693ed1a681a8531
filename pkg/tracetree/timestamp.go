package tracetree

import (
	"encoding/json"
	"time"
)

// timestampLayouts are tried in order. Zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp keeps the raw value alongside the parsed time.
// Time is zero when Raw could not be parsed.
type Timestamp struct {
	Raw  string
	Time time.Time
}

// ParseTimestamp parses raw with the accepted layouts.
func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			ts.Time = t
			break
		}
	}
	return ts
}

// Valid reports whether the raw value parsed.
func (t Timestamp) Valid() bool {
	return !t.Time.IsZero()
}

// Sub returns t - u when both timestamps are valid.
func (t Timestamp) Sub(u Timestamp) (time.Duration, bool) {
	if !t.Valid() || !u.Valid() {
		return 0, false
	}
	return t.Time.Sub(u.Time), true
}

func (t Timestamp) String() string {
	return t.Raw
}

// MarshalJSON emits the raw value so output matches the input log.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

// UnmarshalJSON accepts a string or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(*raw)
	return nil
}
