package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a stable identifier from a human-entered name. Names with
// no usable characters (e.g. fully non-ASCII) fall back to the given base.
func Slugify(value, fallback string) string {
	normalized := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return fallback
	}
	return normalized
}

// NextIdentifier disambiguates base against already-taken identifiers with a
// numeric suffix: base, base-2, base-3, ...
func NextIdentifier(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for index := 2; ; index++ {
		candidate := base + "-" + strconv.Itoa(index)
		if !taken(candidate) {
			return candidate
		}
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts a loosely formatted timestamp string into a
// canonical UTC time, or nil if it cannot be parsed. Zone-less values are
// assumed to be UTC.
func ParseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

// NormalizeThreshold converts threshold inputs of any loose type to a
// non-negative integer, or nil when absent, malformed or negative.
func NormalizeThreshold(value any) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil || parsed < 0 {
			return nil
		}
		return &parsed
	default:
		parsed, ok := looseInt(value)
		if !ok || parsed < 0 {
			return nil
		}
		return &parsed
	}
}

// ParseQuantity converts a loosely typed quantity (JSON number, numeric
// string, integer) to an int. The second result reports success.
func ParseQuantity(value any) (int, bool) {
	return looseInt(value)
}

func looseInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
