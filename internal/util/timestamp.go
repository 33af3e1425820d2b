package util

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTimestamp indicates a login timestamp that could not be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp format")

// timestampLayouts are the accepted ISO-8601 shapes after the Z substitution.
// Offsetless instants are interpreted as UTC, matching how the upstream
// integrations submit timestamps (e.g. "2025-12-10T10:17:54").
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an ISO-8601 login timestamp into a timezone-aware
// instant. A trailing literal "Z" is interpreted as the UTC offset "+00:00".
// Partial dates and any other deviation fail with ErrInvalidTimestamp.
func ParseTimestamp(raw string) (time.Time, error) {
	s := raw
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrInvalidTimestamp
}
