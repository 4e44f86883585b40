// Package fields provides tolerant extraction of typed values from raw
// device records. Producer schema generations disagree on field names, units
// and nesting, so every accessor walks an ordered candidate list and returns
// the first usable match instead of assuming one shape.
package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DurationCandidate names a raw field that may carry a duration, together
// with the divisor that converts its unit to minutes.
type DurationCandidate struct {
	Key     string
	Divisor float64
}

// UsageCandidates covers the duration field spellings seen across agent
// versions, minutes first, then seconds, then milliseconds.
var UsageCandidates = []DurationCandidate{
	{Key: "usageMinutes", Divisor: 1},
	{Key: "totalMinutes", Divisor: 1},
	{Key: "totalUsageMinutes", Divisor: 1},
	{Key: "screenTimeMinutes", Divisor: 1},
	{Key: "durationMinutes", Divisor: 1},
	{Key: "usageSeconds", Divisor: 60},
	{Key: "totalSeconds", Divisor: 60},
	{Key: "durationSeconds", Divisor: 60},
	{Key: "usageMillis", Divisor: 60000},
	{Key: "durationMs", Divisor: 60000},
}

// Number coerces a raw value into a finite float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return Number(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return Number(parsed)
	default:
		return 0, false
	}
}

// NumberOrString is Number extended with string parsing, for fields like
// hourly minute values that some producers emit as "42".
func NumberOrString(v any) (float64, bool) {
	if n, ok := Number(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return Number(parsed)
	}
	return 0, false
}

// Minutes returns the first numeric candidate converted to minutes.
func Minutes(rec map[string]any, candidates []DurationCandidate) (float64, bool) {
	for _, c := range candidates {
		if v, ok := Number(rec[c.Key]); ok {
			return v / c.Divisor, true
		}
	}
	return 0, false
}

var (
	hourPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*h`)
	minutePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*m`)
)

// ParseDurationString parses free-text durations of the form "2h 15m".
// Either component may be missing; a bare number is treated as minutes.
// Unparsable input yields zero.
func ParseDurationString(value string) float64 {
	if value == "" {
		return 0
	}

	hours := 0.0
	minutes := 0.0
	if m := hourPattern.FindStringSubmatch(value); m != nil {
		hours, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := minutePattern.FindStringSubmatch(value); m != nil {
		minutes, _ = strconv.ParseFloat(m[1], 64)
	}

	if hours == 0 && minutes == 0 {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0
		}
		return parsed
	}

	return hours*60 + minutes
}

// Duration resolves a usage duration to canonical minutes plus a display
// label. Numeric candidates win; then the free-text "usage"/"usageLabel"
// fields; the final fallback is zero.
func Duration(rec map[string]any, candidates []DurationCandidate) (float64, string) {
	if minutes, ok := Minutes(rec, candidates); ok {
		return minutes, FormatMinutes(minutes)
	}

	for _, key := range []string{"usage", "usageLabel"} {
		if s, ok := rec[key].(string); ok && s != "" {
			return ParseDurationString(s), s
		}
	}

	return 0, "0m"
}

// FormatMinutes renders minutes as "0m", "45m", "2h" or "1h 30m".
func FormatMinutes(totalMinutes float64) string {
	if math.IsNaN(totalMinutes) || totalMinutes <= 0 {
		return "0m"
	}

	minutes := int(math.Round(totalMinutes))
	hours := minutes / 60
	remaining := minutes % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", remaining)
	case remaining == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, remaining)
	}
}

// Text returns the first candidate key holding a non-blank string.
func Text(rec map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := rec[key].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// Blocked resolves the blocked flag across its alias generations:
// isBlocked, blocked, negated allowed, and the string status/mode fields.
func Blocked(rec map[string]any) bool {
	if b, ok := rec["isBlocked"].(bool); ok {
		return b
	}
	if b, ok := rec["blocked"].(bool); ok {
		return b
	}
	if b, ok := rec["allowed"].(bool); ok {
		return !b
	}
	if s, ok := rec["status"].(string); ok {
		return strings.EqualFold(s, "blocked")
	}
	if s, ok := rec["mode"].(string); ok {
		return strings.EqualFold(s, "blocked")
	}
	return false
}

// DefaultCategory is used when no explicit category field exists and no
// keyword matches.
const DefaultCategory = "Uncategorized"

var categoryRules = []struct {
	category string
	keywords []string
}{
	{"Entertainment", []string{"youtube", "netflix", "disney"}},
	{"Social Media", []string{"insta", "tiktok", "snap", "social"}},
	{"Communication", []string{"message", "sms", "chat", "whats"}},
	{"Productivity", []string{"mail", "docs", "drive"}},
	{"Games", []string{"game"}},
	{"Education", []string{"school", "edu", "learn"}},
	{"Tools", []string{"camera", "photo"}},
}

// Category resolves an app category: an explicit category field wins,
// otherwise keyword inference over package name (preferred) or display name,
// first match in a fixed priority order.
func Category(rec map[string]any, name, packageName string) string {
	if s, ok := Text(rec, "category"); ok {
		return s
	}

	key := strings.ToLower(packageName)
	if key == "" {
		key = strings.ToLower(name)
	}

	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(key, keyword) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp coerces the timestamp shapes producers emit: time.Time, epoch
// milliseconds, parseable strings, and {seconds, nanoseconds} maps.
func Timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		for _, layout := range stringLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	case map[string]any:
		seconds, okSec := Number(t["seconds"])
		if !okSec {
			return time.Time{}, false
		}
		nanos, _ := Number(t["nanoseconds"])
		if nanos == 0 {
			nanos, _ = Number(t["nanos"])
		}
		return time.Unix(int64(seconds), int64(nanos)).UTC(), true
	default:
		if ms, ok := Number(v); ok {
			return time.UnixMilli(int64(ms)).UTC(), true
		}
		return time.Time{}, false
	}
}

// TimestampField applies Timestamp to the first candidate key that coerces.
func TimestampField(rec map[string]any, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			if t, ok := Timestamp(v); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
