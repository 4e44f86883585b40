package telemetry

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
)

// HourlyPoint is one hour's usage inside a day entry.
type HourlyPoint struct {
	HourLabel string
	Minutes   float64
}

// DayEntry is one canonical calendar day of usage. At most one entry exists
// per date after merging.
type DayEntry struct {
	ID           string
	Date         string // YYYY-MM-DD
	TotalMinutes float64
	Hourly       []HourlyPoint
	DayLabel     string // short weekday, e.g. "Mon"
	DateValue    int64  // epoch milliseconds, used for ordering
}

// DateKey formats a calendar date key.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func dayLabel(t time.Time) string {
	return t.UTC().Weekday().String()[:3]
}

func padHour(label string) string {
	if len(label) == 1 {
		return "0" + label
	}
	return label
}

// NormalizeHourly accepts either a list of {hour, minutes} objects or a map
// keyed by hour. Entries with a non-numeric minute value or an unusable hour
// are dropped silently.
func NormalizeHourly(raw any) []HourlyPoint {
	switch v := raw.(type) {
	case []any:
		points := make([]HourlyPoint, 0, len(v))
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}

			var label string
			switch hour := firstPresent(entry, "hour", "label", "time").(type) {
			case string:
				label = hour
			default:
				if n, ok := fields.Number(hour); ok && n >= 0 {
					label = strconv.Itoa(int(n))
				}
			}
			if label == "" {
				continue
			}

			minutes, ok := fields.NumberOrString(firstPresent(entry, "minutes", "value", "duration", "totalMinutes"))
			if !ok {
				continue
			}

			points = append(points, HourlyPoint{HourLabel: padHour(label), Minutes: minutes})
		}
		return points
	case map[string]any:
		// Pad before sorting so mixed-width keys stay chronological
		// ("9" would otherwise sort after "10").
		byHour := make(map[string]any, len(v))
		for key, value := range v {
			byHour[padHour(key)] = value
		}

		keys := make([]string, 0, len(byHour))
		for key := range byHour {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		points := make([]HourlyPoint, 0, len(keys))
		for _, key := range keys {
			minutes, ok := fields.NumberOrString(byHour[key])
			if !ok {
				continue
			}
			points = append(points, HourlyPoint{HourLabel: key, Minutes: minutes})
		}
		return points
	default:
		return nil
	}
}

func firstPresent(rec map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

var dayTotalCandidates = []fields.DurationCandidate{
	{Key: "totalMinutes", Divisor: 1},
	{Key: "totalUsageMinutes", Divisor: 1},
	{Key: "screenTimeMinutes", Divisor: 1},
	{Key: "totalSeconds", Divisor: 60},
}

// NormalizeDayEntry builds a DayEntry from a raw per-day usage record. A
// record with no resolvable date is anchored to now so it is never lost.
func NormalizeDayEntry(id string, rec map[string]any, now time.Time) DayEntry {
	date, ok := fields.TimestampField(rec,
		"date", "day", "dateKey", "timestamp", "dayStart", "recordedAt")
	if !ok {
		date = now.UTC()
	}

	total, _ := fields.Minutes(rec, dayTotalCandidates)
	if total < 0 {
		total = 0
	}

	hourly := NormalizeHourly(firstPresent(rec,
		"hourlyBreakdown", "hourly", "hourlyUsage", "hourlyMinutes", "hours"))

	return DayEntry{
		ID:           id,
		Date:         DateKey(date),
		TotalMinutes: total,
		Hourly:       hourly,
		DayLabel:     dayLabel(date),
		DateValue:    date.UnixMilli(),
	}
}

// SortDays orders entries newest first.
func SortDays(entries []DayEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DateValue > entries[j].DateValue
	})
}

var keyedTotalCandidates = []fields.DurationCandidate{
	{Key: "totalMinutes", Divisor: 1},
	{Key: "totalUsageMinutes", Divisor: 1},
	{Key: "screenTimeMinutes", Divisor: 1},
	{Key: "usageMinutes", Divisor: 1},
	{Key: "totalSeconds", Divisor: 60},
	{Key: "usageSeconds", Divisor: 60},
	{Key: "durationMs", Divisor: 60000},
}

var perAppCandidates = []fields.DurationCandidate{
	{Key: "minutes", Divisor: 1},
	{Key: "usageMinutes", Divisor: 1},
	{Key: "totalMinutes", Divisor: 1},
	{Key: "durationMinutes", Divisor: 1},
	{Key: "usageSeconds", Divisor: 60},
	{Key: "durationSeconds", Divisor: 60},
	{Key: "totalSeconds", Divisor: 60},
	{Key: "durationMs", Divisor: 60000},
}

// KeyedDayDate extracts the YYYY-MM-DD suffix from a
// "<deviceIdentifier>_<date>" document identifier.
func KeyedDayDate(docID string) (string, bool) {
	idx := strings.LastIndex(docID, "_")
	if idx < 0 || idx == len(docID)-1 {
		return "", false
	}
	date := docID[idx+1:]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", false
	}
	return date, true
}

// DayEntryFromKeyed derives a DayEntry from a daily aggregate document keyed
// by device identifier and date. The total comes from a root duration field
// when positive, otherwise from summing the nested per-app map. That schema
// generation records no hourly detail, so the breakdown stays empty.
func DayEntryFromKeyed(docID string, rec map[string]any) (DayEntry, bool) {
	date, ok := KeyedDayDate(docID)
	if !ok {
		return DayEntry{}, false
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return DayEntry{}, false
	}

	total, ok := fields.Minutes(rec, keyedTotalCandidates)
	if !ok || total <= 0 {
		total = sumPerAppMinutes(rec)
	}

	return DayEntry{
		ID:           docID,
		Date:         date,
		TotalMinutes: total,
		Hourly:       []HourlyPoint{},
		DayLabel:     dayLabel(day),
		DateValue:    day.UnixMilli(),
	}, true
}

// perAppMap finds the nested per-app usage map inside a daily aggregate
// document.
func perAppMap(rec map[string]any) map[string]any {
	for _, key := range []string{"apps", "appUsage", "perApp", "appTotals"} {
		if m, ok := rec[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func sumPerAppMinutes(rec map[string]any) float64 {
	total := 0.0
	for _, v := range perAppMap(rec) {
		entry, ok := v.(map[string]any)
		if !ok {
			// some producers write plain numeric minute values
			if minutes, numOK := fields.Number(v); numOK {
				total += minutes
			}
			continue
		}
		if minutes, ok := fields.Minutes(entry, perAppCandidates); ok {
			total += minutes
		}
	}
	return total
}

// MergeFallbackDays flattens per-alias day caches into at most one entry per
// date. Aliases are visited in order and a later alias overwrites an earlier
// one for the same date; every alias is expected to describe the same
// physical device. The result is sorted newest first.
func MergeFallbackDays(aliasOrder []string, byAlias map[string][]DayEntry) []DayEntry {
	byDate := make(map[string]DayEntry)
	for _, alias := range aliasOrder {
		for _, entry := range byAlias[alias] {
			byDate[entry.Date] = entry
		}
	}

	merged := make([]DayEntry, 0, len(byDate))
	for _, entry := range byDate {
		merged = append(merged, entry)
	}
	SortDays(merged)
	return merged
}
