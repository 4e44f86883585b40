package telemetry

import (
	"sort"
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
)

// UnnamedApp labels inventory entries whose record carries no usable name.
const UnnamedApp = "Unnamed App"

// App is one normalized entry of the installed-app inventory.
type App struct {
	ID           string
	Name         string
	PackageName  string
	Category     string
	UsageMinutes float64
	UsageLabel   string
	Blocked      bool
	LastUsed     time.Time
}

// NormalizeApp builds an App from a raw inventory record. It never fails;
// missing fields fall back to neutral defaults.
func NormalizeApp(id string, rec map[string]any) App {
	name, ok := fields.Text(rec, "name", "appName", "applicationName", "packageName")
	if !ok {
		name = UnnamedApp
	}
	pkg, _ := fields.Text(rec, "packageName", "bundleId", "identifier")

	minutes, label := fields.Duration(rec, fields.UsageCandidates)
	lastUsed, _ := fields.TimestampField(rec,
		"lastUsed", "lastUsedAt", "updatedAt", "timestamp", "lastActiveAt")

	return App{
		ID:           id,
		Name:         name,
		PackageName:  pkg,
		Category:     fields.Category(rec, name, pkg),
		UsageMinutes: minutes,
		UsageLabel:   label,
		Blocked:      fields.Blocked(rec),
		LastUsed:     lastUsed,
	}
}

// SortApps orders the inventory by usage, heaviest first, with name as the
// tie-break so equal-usage rows keep a stable order.
func SortApps(apps []App) {
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].UsageMinutes != apps[j].UsageMinutes {
			return apps[i].UsageMinutes > apps[j].UsageMinutes
		}
		return apps[i].Name < apps[j].Name
	})
}

// AppStats summarizes an inventory for the dashboard header row.
type AppStats struct {
	Total        int
	Blocked      int
	TotalMinutes float64
	Categories   int
}

// SummarizeApps counts apps, blocked apps, total usage and distinct
// categories over the inventory.
func SummarizeApps(apps []App) AppStats {
	stats := AppStats{Total: len(apps)}
	categories := make(map[string]struct{})

	for _, app := range apps {
		if app.Blocked {
			stats.Blocked++
		}
		stats.TotalMinutes += app.UsageMinutes
		categories[app.Category] = struct{}{}
	}
	stats.Categories = len(categories)
	return stats
}
