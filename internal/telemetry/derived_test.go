package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func history(dates ...string) []DayEntry {
	entries := make([]DayEntry, 0, len(dates))
	for i, date := range dates {
		day, _ := time.Parse("2006-01-02", date)
		entries = append(entries, DayEntry{
			ID:           date,
			Date:         date,
			TotalMinutes: float64((i + 1) * 10),
			DayLabel:     dayLabel(day),
			DateValue:    day.UnixMilli(),
		})
	}
	return entries
}

func TestTodayEntry(t *testing.T) {
	days := history("2026-06-05", "2026-06-04")

	today, ok := TodayEntry(days, "2026-06-05")
	require.True(t, ok)
	require.Equal(t, "2026-06-05", today.Date)

	// Today absent: the most recent entry stands in.
	today, ok = TodayEntry(days, "2026-06-06")
	require.True(t, ok)
	require.Equal(t, "2026-06-05", today.Date)

	_, ok = TodayEntry(nil, "2026-06-05")
	require.False(t, ok)
}

func TestYesterdayEntry(t *testing.T) {
	days := history("2026-06-05", "2026-06-04")

	yesterday, ok := YesterdayEntry(days, "2026-06-05")
	require.True(t, ok)
	require.Equal(t, "2026-06-04", yesterday.Date)
}

func TestYesterdayEntryStaleHistorySkipsTodayProxy(t *testing.T) {
	days := history("2026-06-03", "2026-06-02")

	// Today has no record: the most recent entry stands in for today and
	// must not be reused as yesterday.
	today, ok := TodayEntry(days, "2026-06-05")
	require.True(t, ok)
	require.Equal(t, "2026-06-03", today.Date)

	yesterday, ok := YesterdayEntry(days, today.Date)
	require.True(t, ok)
	require.Equal(t, "2026-06-02", yesterday.Date)
}

func TestYesterdayEntrySingleDayIsAbsent(t *testing.T) {
	days := history("2026-06-04")

	today, ok := TodayEntry(days, "2026-06-05")
	require.True(t, ok)
	require.Equal(t, "2026-06-04", today.Date)

	_, ok = YesterdayEntry(days, today.Date)
	require.False(t, ok)

	_, ok = YesterdayEntry(history("2026-06-05"), "2026-06-05")
	require.False(t, ok)

	_, ok = YesterdayEntry(nil, "2026-06-05")
	require.False(t, ok)
}

func TestWeeklyUsageOldestFirst(t *testing.T) {
	days := history(
		"2026-06-08", "2026-06-07", "2026-06-06", "2026-06-05",
		"2026-06-04", "2026-06-03", "2026-06-02", "2026-06-01",
	)

	points := WeeklyUsage(days)
	require.Len(t, points, 7)
	require.Equal(t, "Tue", points[0].Label) // 2026-06-02
	require.Equal(t, "Mon", points[6].Label) // 2026-06-08
	require.Equal(t, 10.0, points[6].Minutes)
	require.Equal(t, 0.17, points[6].Hours)
}

func TestLongestDayOverLastSeven(t *testing.T) {
	days := history(
		"2026-06-08", "2026-06-07", "2026-06-06", "2026-06-05",
		"2026-06-04", "2026-06-03", "2026-06-02", "2026-06-01",
	)
	// The eighth (oldest) entry has the highest total but is out of window.
	longest, ok := LongestDay(days)
	require.True(t, ok)
	require.Equal(t, "2026-06-02", longest.Date)
	require.Equal(t, 70.0, longest.TotalMinutes)

	_, ok = LongestDay(nil)
	require.False(t, ok)
}

func TestTrendMinutes(t *testing.T) {
	today := DayEntry{TotalMinutes: 90}
	yesterday := DayEntry{TotalMinutes: 60}
	require.Equal(t, 30.0, TrendMinutes(today, yesterday))
	require.Equal(t, -30.0, TrendMinutes(yesterday, today))
}

func TestTopN(t *testing.T) {
	apps := []TopApp{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	top := TopN(apps, 2)
	require.Len(t, top, 2)
	require.Equal(t, "a", top[0].ID)

	// The copy does not alias the source.
	top[0].ID = "mutated"
	require.Equal(t, "a", apps[0].ID)

	require.Len(t, TopN(apps, 5), 3)
	require.Nil(t, TopN(apps, 0))
	require.Nil(t, TopN(nil, 3))
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2026, time.June, 5, 12, 0, 0, 0, time.UTC)

	require.Equal(t, "Just now", FormatRelative(now, now.Add(-30*time.Second)))
	require.Equal(t, "5m ago", FormatRelative(now, now.Add(-5*time.Minute)))
	require.Equal(t, "2h ago", FormatRelative(now, now.Add(-2*time.Hour)))
	require.Equal(t, "3d ago", FormatRelative(now, now.Add(-73*time.Hour)))
	require.Equal(t, "Just now", FormatRelative(now, now.Add(time.Minute)))
	require.Equal(t, "", FormatRelative(now, time.Time{}))
}
