package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAggregate(t *testing.T) {
	updated := time.Date(2026, time.June, 4, 18, 0, 0, 0, time.UTC)

	aggregate := NormalizeAggregate(map[string]any{
		"totalMinutes":        240.0,
		"averageDailyMinutes": 80.0,
		"calculatedAt":        float64(updated.UnixMilli()),
		"categoryTotals": []any{
			map[string]any{"category": "Entertainment", "minutes": 150.0},
			map[string]any{"name": "Games", "totalMinutes": 90.0},
			map[string]any{"category": "Broken"},
		},
		"topApps": []any{
			map[string]any{"name": "YouTube", "minutes": 120.0, "packageName": "com.google.android.youtube"},
			map[string]any{"appName": "Minecraft", "usageSeconds": 3600.0},
		},
	})

	require.Equal(t, 240.0, aggregate.TotalMinutes)
	require.Equal(t, 80.0, aggregate.AverageDailyMinutes)
	require.Equal(t, updated, aggregate.UpdatedAt)

	require.Equal(t, []CategoryTotal{
		{Category: "Entertainment", Minutes: 150},
		{Category: "Games", Minutes: 90},
	}, aggregate.CategoryTotals)

	require.Len(t, aggregate.TopApps, 2)
	require.Equal(t, "com.google.android.youtube", aggregate.TopApps[0].ID)
	require.Equal(t, 120.0, aggregate.TopApps[0].Minutes)
	require.Equal(t, "Minecraft", aggregate.TopApps[1].Name)
	require.Equal(t, 60.0, aggregate.TopApps[1].Minutes)
	require.Equal(t, "1", aggregate.TopApps[1].ID)
}

func TestNormalizeAggregateCategoryMap(t *testing.T) {
	aggregate := NormalizeAggregate(map[string]any{
		"categories": map[string]any{
			"Games":         60.0,
			"Entertainment": "90",
		},
	})

	require.Equal(t, []CategoryTotal{
		{Category: "Entertainment", Minutes: 90},
		{Category: "Games", Minutes: 60},
	}, aggregate.CategoryTotals)
}

func TestDeriveAggregateGroupsByCategory(t *testing.T) {
	candidate, ok := DeriveAggregate("dev_2026-06-03", map[string]any{
		"apps": map[string]any{
			"com.google.android.youtube": map[string]any{"minutes": 90.0},
			"com.whatsapp":               map[string]any{"minutes": 30.0},
			"netflix":                    map[string]any{"minutes": 40.0},
		},
	})
	require.True(t, ok)
	require.Equal(t, "2026-06-03", candidate.Day)

	aggregate := candidate.Aggregate
	require.Equal(t, 160.0, aggregate.TotalMinutes)

	totals := map[string]float64{}
	for _, total := range aggregate.CategoryTotals {
		totals[total.Category] = total.Minutes
	}
	require.Equal(t, 130.0, totals["Entertainment"])
	require.Equal(t, 30.0, totals["Communication"])

	require.Equal(t, "com.google.android.youtube", aggregate.TopApps[0].ID)
	require.Equal(t, 90.0, aggregate.TopApps[0].Minutes)
}

func TestDeriveAggregatePrefersPositiveRootTotal(t *testing.T) {
	candidate, ok := DeriveAggregate("dev_2026-06-03", map[string]any{
		"totalMinutes": 200.0,
		"apps": map[string]any{
			"youtube": map[string]any{"minutes": 90.0},
		},
	})
	require.True(t, ok)
	// The root total is taken verbatim, never added to the per-app sum.
	require.Equal(t, 200.0, candidate.Aggregate.TotalMinutes)
}

func TestDeriveAggregateCapsRanking(t *testing.T) {
	apps := map[string]any{}
	for i := 0; i < 15; i++ {
		apps["app-"+string(rune('a'+i))] = map[string]any{"minutes": float64(i + 1)}
	}

	candidate, ok := DeriveAggregate("dev_2026-06-03", map[string]any{"apps": apps})
	require.True(t, ok)
	require.Len(t, candidate.Aggregate.TopApps, FallbackTopAppLimit)
	require.Equal(t, 15.0, candidate.Aggregate.TopApps[0].Minutes)
}

func TestDeriveAggregateRejectsUnusableDocs(t *testing.T) {
	_, ok := DeriveAggregate("not-a-keyed-id", map[string]any{
		"apps": map[string]any{"youtube": map[string]any{"minutes": 5.0}},
	})
	require.False(t, ok)

	_, ok = DeriveAggregate("dev_2026-06-03", map[string]any{})
	require.False(t, ok)
}

func TestFresherAggregatePrefersUpdatedAt(t *testing.T) {
	older := &AggregateCandidate{
		Aggregate: UsageAggregate{UpdatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		Day:       "2026-06-03",
	}
	newer := &AggregateCandidate{
		Aggregate: UsageAggregate{UpdatedAt: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)},
		Day:       "2026-06-01",
	}

	require.Same(t, newer, FresherAggregate(older, newer))
	require.Same(t, newer, FresherAggregate(newer, older))
}

func TestFresherAggregateFallsBackToDay(t *testing.T) {
	older := &AggregateCandidate{Day: "2026-06-01"}
	newer := &AggregateCandidate{Day: "2026-06-02"}

	require.Same(t, newer, FresherAggregate(older, newer))
	require.Same(t, newer, FresherAggregate(newer, older))
	require.Same(t, older, FresherAggregate(older, nil))
	require.Same(t, newer, FresherAggregate(nil, newer))
}
