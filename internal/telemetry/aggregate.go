package telemetry

import (
	"sort"
	"strconv"
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
)

// CategoryTotal is the per-category slice of an aggregate, unique by
// category after merging.
type CategoryTotal struct {
	Category string
	Minutes  float64
}

// TopApp is one entry of the most-used-apps ranking.
type TopApp struct {
	ID          string
	Name        string
	PackageName string
	Minutes     float64
	Category    string
	IconURL     string
}

// UsageAggregate is the reconciled per-app/category usage rollup.
// TotalMinutes is either taken verbatim from a precomputed aggregate
// document or derived by the fallback path; the two are never combined.
type UsageAggregate struct {
	TotalMinutes        float64
	AverageDailyMinutes float64
	CategoryTotals      []CategoryTotal
	TopApps             []TopApp
	UpdatedAt           time.Time
}

// FallbackTopAppLimit bounds the ranking derived from daily documents.
const FallbackTopAppLimit = 10

var aggregateTotalCandidates = []fields.DurationCandidate{
	{Key: "totalMinutes", Divisor: 1},
	{Key: "totalUsageMinutes", Divisor: 1},
	{Key: "screenTimeMinutes", Divisor: 1},
}

var topAppMinuteCandidates = []fields.DurationCandidate{
	{Key: "minutes", Divisor: 1},
	{Key: "totalMinutes", Divisor: 1},
	{Key: "usageMinutes", Divisor: 1},
	{Key: "usageSeconds", Divisor: 60},
}

// NormalizeAggregate builds a UsageAggregate from the precomputed aggregate
// document. Category totals accept either a list of objects or a map keyed
// by category name.
func NormalizeAggregate(rec map[string]any) UsageAggregate {
	total, _ := fields.Minutes(rec, aggregateTotalCandidates)
	if total < 0 {
		total = 0
	}

	average, _ := fields.Minutes(rec, []fields.DurationCandidate{
		{Key: "averageDailyMinutes", Divisor: 1},
		{Key: "avgDailyMinutes", Divisor: 1},
	})

	updatedAt, _ := fields.TimestampField(rec,
		"updatedAt", "calculatedAt", "generatedAt", "timestamp")

	return UsageAggregate{
		TotalMinutes:        total,
		AverageDailyMinutes: average,
		CategoryTotals:      normalizeCategoryTotals(rec),
		TopApps:             normalizeTopApps(rec),
		UpdatedAt:           updatedAt,
	}
}

func normalizeCategoryTotals(rec map[string]any) []CategoryTotal {
	raw := firstPresent(rec, "categoryTotals", "categories", "categoryMinutes", "categoriesTotals")

	switch v := raw.(type) {
	case []any:
		totals := make([]CategoryTotal, 0, len(v))
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			label, ok := fields.Text(entry, "category", "name")
			if !ok {
				continue
			}
			minutes, ok := fields.Number(firstPresent(entry, "minutes", "totalMinutes", "value"))
			if !ok {
				continue
			}
			totals = append(totals, CategoryTotal{Category: label, Minutes: minutes})
		}
		return totals
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		totals := make([]CategoryTotal, 0, len(keys))
		for _, key := range keys {
			minutes, ok := fields.NumberOrString(v[key])
			if !ok {
				continue
			}
			totals = append(totals, CategoryTotal{Category: key, Minutes: minutes})
		}
		return totals
	default:
		return nil
	}
}

func normalizeTopApps(rec map[string]any) []TopApp {
	raw, ok := rec["topApps"].([]any)
	if !ok {
		raw, _ = rec["topApplications"].([]any)
	}

	apps := make([]TopApp, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		name, ok := fields.Text(entry, "name", "appName", "packageName")
		if !ok {
			continue
		}
		minutes, ok := fields.Minutes(entry, topAppMinuteCandidates)
		if !ok {
			continue
		}

		id, _ := fields.Text(entry, "id", "packageName")
		if id == "" {
			id = strconv.Itoa(i)
		}
		pkg, _ := fields.Text(entry, "packageName", "bundleId")
		category, _ := fields.Text(entry, "category", "type")
		icon, _ := fields.Text(entry, "iconUrl", "icon")

		apps = append(apps, TopApp{
			ID:          id,
			Name:        name,
			PackageName: pkg,
			Minutes:     minutes,
			Category:    category,
			IconURL:     icon,
		})
	}
	return apps
}

// AggregateCandidate pairs a derived aggregate with the day key of the daily
// document it came from, for recency arbitration across device aliases.
type AggregateCandidate struct {
	Aggregate UsageAggregate
	Day       string // YYYY-MM-DD
}

// DeriveAggregate computes an aggregate from one keyed daily document by
// summing per-app durations, grouping by category and re-deriving the top-app
// ranking. The root duration field, when positive, is preferred over the
// per-app sum for the total; the two are never added together.
func DeriveAggregate(docID string, rec map[string]any) (AggregateCandidate, bool) {
	day, ok := KeyedDayDate(docID)
	if !ok {
		return AggregateCandidate{}, false
	}

	perApp := perAppMap(rec)
	if len(perApp) == 0 {
		return AggregateCandidate{}, false
	}

	names := make([]string, 0, len(perApp))
	for name := range perApp {
		names = append(names, name)
	}
	sort.Strings(names)

	apps := make([]TopApp, 0, len(names))
	categoryMinutes := make(map[string]float64)
	categoryOrder := make([]string, 0)
	perAppSum := 0.0

	for _, name := range names {
		entry, ok := perApp[name].(map[string]any)
		if !ok {
			if minutes, numOK := fields.Number(perApp[name]); numOK {
				entry = map[string]any{"minutes": minutes}
			} else {
				continue
			}
		}

		minutes, ok := fields.Minutes(entry, perAppCandidates)
		if !ok {
			continue
		}

		displayName := name
		if n, ok := fields.Text(entry, "name", "appName"); ok {
			displayName = n
		}
		pkg, _ := fields.Text(entry, "packageName")
		category := fields.Category(entry, displayName, pkg)

		apps = append(apps, TopApp{
			ID:          name,
			Name:        displayName,
			PackageName: pkg,
			Minutes:     minutes,
			Category:    category,
		})

		if _, seen := categoryMinutes[category]; !seen {
			categoryOrder = append(categoryOrder, category)
		}
		categoryMinutes[category] += minutes
		perAppSum += minutes
	}

	if len(apps) == 0 {
		return AggregateCandidate{}, false
	}

	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].Minutes > apps[j].Minutes
	})
	if len(apps) > FallbackTopAppLimit {
		apps = apps[:FallbackTopAppLimit]
	}

	totals := make([]CategoryTotal, 0, len(categoryOrder))
	for _, category := range categoryOrder {
		totals = append(totals, CategoryTotal{Category: category, Minutes: categoryMinutes[category]})
	}

	total, ok := fields.Minutes(rec, keyedTotalCandidates)
	if !ok || total <= 0 {
		total = perAppSum
	}

	updatedAt, _ := fields.TimestampField(rec,
		"updatedAt", "calculatedAt", "generatedAt", "timestamp")

	return AggregateCandidate{
		Aggregate: UsageAggregate{
			TotalMinutes:   total,
			CategoryTotals: totals,
			TopApps:        apps,
			UpdatedAt:      updatedAt,
		},
		Day: day,
	}, true
}

// FresherAggregate keeps the candidate with the most recent updatedAt
// stamp, falling back to the day key when a stamp is missing. Ties keep the
// incumbent.
func FresherAggregate(incumbent, candidate *AggregateCandidate) *AggregateCandidate {
	if candidate == nil {
		return incumbent
	}
	if incumbent == nil {
		return candidate
	}

	ci, cc := incumbent.Aggregate.UpdatedAt, candidate.Aggregate.UpdatedAt
	if !ci.IsZero() || !cc.IsZero() {
		if cc.After(ci) {
			return candidate
		}
		return incumbent
	}

	if candidate.Day > incumbent.Day {
		return candidate
	}
	return incumbent
}
