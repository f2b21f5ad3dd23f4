package store

import (
	"strings"
	"time"
)

// TimestampLayout is the canonical GitHub timestamp form, always UTC.
const TimestampLayout = "2006-01-02T15:04:05Z"

// fallbackLayouts are tried in order when a value is not in canonical form.
// Layouts without a zone are read as UTC.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses a GitHub timestamp, falling back to general ISO 8601
// forms. The second return value is false when nothing matched.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(TimestampLayout, value); err == nil {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t in canonical form with second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// LatestUpdatedAt returns the newest parseable updated_at across all cached
// issues. Unparseable values are ignored.
func (s *Store) LatestUpdatedAt() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, issue := range s.issues {
		t, ok := ParseTimestamp(issue.UpdatedAt)
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}
