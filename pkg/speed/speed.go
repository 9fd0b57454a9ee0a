// Package speed normalizes raw speed-limit tags into numeric km/h values.
package speed

import (
	"strconv"
	"strings"
	"unicode"
)

// mphToKMH converts statute miles per hour to kilometers per hour
const mphToKMH = 1.60934

// Normalize parses a raw speed-limit tag. It returns the raw string
// unchanged (trimmed) for display, and a numeric value in km/h, or nil when
// the tag carries no parsable number.
//
// Recognized forms, tried in order against the lowercased, space-stripped
// tag: "30 mph", "50 km/h", plain "50", and region codes like "DK:urban"
// (raw preserved, no numeric value). Malformed numbers degrade to nil;
// Normalize never fails.
func Normalize(raw string) (string, *float64) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	s := strings.ToLower(strings.ReplaceAll(raw, " ", ""))

	switch {
	case strings.HasSuffix(s, "mph"):
		if num, ok := parseNumeric(strings.TrimSuffix(s, "mph")); ok {
			kmh := num * mphToKMH
			return raw, &kmh
		}
		return raw, nil
	case strings.HasSuffix(s, "km/h"):
		if num, ok := parseNumeric(strings.TrimSuffix(s, "km/h")); ok {
			return raw, &num
		}
		return raw, nil
	case strings.ContainsFunc(s, unicode.IsDigit):
		if num, ok := parseNumeric(s); ok {
			return raw, &num
		}
		return raw, nil
	case strings.Contains(s, ":"):
		// Region-coded zone labels (e.g. "dk:urban") are preserved as-is;
		// resolving them to numbers is a per-country table we do not carry.
		return raw, nil
	default:
		return raw, nil
	}
}

// parseNumeric extracts the digit and decimal-point characters from s and
// parses them as a float
func parseNumeric(s string) (float64, bool) {
	var b strings.Builder
	for _, ch := range s {
		if unicode.IsDigit(ch) || ch == '.' {
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	num, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
