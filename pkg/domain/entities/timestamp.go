package entities

import (
	"strings"
	"time"
)

// LabelTimestampLayout is the MM/DD/YYYY-HH:MM:SS form printed on labels
const LabelTimestampLayout = "01/02/2006-15:04:05"

// FormatTimestamp renders t in the label timestamp layout
func FormatTimestamp(t time.Time) string {
	return t.Format(LabelTimestampLayout)
}

// ParseTimestamp accepts the label layout or RFC 3339, in the given location
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(LabelTimestampLayout, raw, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, newValidationError("timestamp", raw, "expected MM/DD/YYYY-HH:MM:SS or RFC 3339")
}
