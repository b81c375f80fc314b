package interchange

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayout is the one profile written for every timestamp.
const timestampLayout = time.RFC3339

// FormatTimestamp renders t in the interchange profile.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timestampLayout)
}

// ParseTimestamp parses an interchange timestamp. Fractional seconds and any
// UTC offset are accepted; the result is normalised to UTC seconds.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC().Truncate(time.Second), nil
}

func formatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}
