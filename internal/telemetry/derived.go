package telemetry

import (
	"fmt"
	"math"
	"time"
)

// WeeklyPoint is one bar of the weekly usage chart, oldest day first.
type WeeklyPoint struct {
	Label   string
	Hours   float64
	Minutes float64
}

// TodayEntry finds the history entry for todayKey, falling back to the most
// recent entry when today has no record yet. History must be sorted newest
// first.
func TodayEntry(history []DayEntry, todayKey string) (DayEntry, bool) {
	for _, entry := range history {
		if entry.Date == todayKey {
			return entry, true
		}
	}
	if len(history) > 0 {
		return history[0], true
	}
	return DayEntry{}, false
}

// YesterdayEntry picks the most recent entry preceding the resolved today
// entry. todayDate is the date of whatever TodayEntry returned, so when a
// stale entry stands in for today it can never double as yesterday.
func YesterdayEntry(history []DayEntry, todayDate string) (DayEntry, bool) {
	for _, entry := range history {
		if entry.Date != todayDate {
			return entry, true
		}
	}
	return DayEntry{}, false
}

// WeeklyUsage builds the last-seven-days chart from a newest-first history,
// returned oldest first.
func WeeklyUsage(history []DayEntry) []WeeklyPoint {
	days := history
	if len(days) > 7 {
		days = days[:7]
	}

	points := make([]WeeklyPoint, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		points = append(points, WeeklyPoint{
			Label:   days[i].DayLabel,
			Hours:   round2(days[i].TotalMinutes / 60),
			Minutes: days[i].TotalMinutes,
		})
	}
	return points
}

// LongestDay returns the heaviest of the last seven days. Ties keep the most
// recent day, which comes first in the window.
func LongestDay(history []DayEntry) (DayEntry, bool) {
	days := history
	if len(days) > 7 {
		days = days[:7]
	}
	if len(days) == 0 {
		return DayEntry{}, false
	}

	longest := days[0]
	for _, entry := range days[1:] {
		if entry.TotalMinutes > longest.TotalMinutes {
			longest = entry
		}
	}
	return longest, true
}

// TrendMinutes is today's usage relative to yesterday's. Positive means
// usage went up.
func TrendMinutes(today, yesterday DayEntry) float64 {
	return today.TotalMinutes - yesterday.TotalMinutes
}

// TopN copies the first n entries of a ranking without aliasing the source
// slice.
func TopN(apps []TopApp, n int) []TopApp {
	if n <= 0 || len(apps) == 0 {
		return nil
	}
	if len(apps) < n {
		n = len(apps)
	}
	out := make([]TopApp, n)
	copy(out, apps[:n])
	return out
}

// FormatRelative renders the age of a timestamp the way the dashboard shows
// it. Future or near-now stamps collapse to "Just now".
func FormatRelative(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "Just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
