// Package telemetry holds the canonical typed model for one monitored child
// and the pure normalization and merge rules that reconcile raw device
// records into it. Everything here is side-effect free; subscription wiring
// lives in the engine package.
package telemetry

import (
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
)

// UnknownAppName is the placeholder used when no name alias resolves.
const UnknownAppName = "Unknown App"

// Activity describes the app currently in the foreground on the child's
// device. Name is never empty.
type Activity struct {
	ID              string
	Name            string
	PackageName     string
	Category        string
	IconURL         string
	StartedAt       time.Time
	LastUpdated     time.Time
	DurationMinutes float64
}

var activityDurationCandidates = []fields.DurationCandidate{
	{Key: "durationMinutes", Divisor: 1},
	{Key: "totalMinutes", Divisor: 1},
	{Key: "durationSeconds", Divisor: 60},
}

// NormalizeActivity builds an Activity from a raw session or embedded
// current-app record. A nil record yields ok == false.
func NormalizeActivity(id string, rec map[string]any) (Activity, bool) {
	if rec == nil {
		return Activity{}, false
	}

	name, ok := fields.Text(rec, "name", "appName", "title", "packageName")
	if !ok {
		name = UnknownAppName
	}

	pkg, _ := fields.Text(rec, "packageName", "bundleId", "identifier")
	category, _ := fields.Text(rec, "category", "type")
	icon, _ := fields.Text(rec, "iconUrl", "icon", "imageUrl")

	startedAt, _ := fields.TimestampField(rec,
		"startedAt", "startTime", "firstSeenAt", "openedAt", "sessionStartedAt")
	lastUpdated, _ := fields.TimestampField(rec,
		"lastUpdated", "updatedAt", "timestamp", "lastSeenAt", "sessionEndedAt")

	minutes, _ := fields.Minutes(rec, activityDurationCandidates)

	return Activity{
		ID:              id,
		Name:            name,
		PackageName:     pkg,
		Category:        category,
		IconURL:         icon,
		StartedAt:       startedAt,
		LastUpdated:     lastUpdated,
		DurationMinutes: minutes,
	}, true
}

// ObservedAt is the freshness comparison key: lastUpdated when present,
// otherwise startedAt.
func (a Activity) ObservedAt() time.Time {
	if !a.LastUpdated.IsZero() {
		return a.LastUpdated
	}
	return a.StartedAt
}

// FresherActivity keeps whichever candidate was observed later, regardless
// of which source produced it. An absent candidate never displaces a present
// incumbent, and ties keep the incumbent so racing sources cannot flap the
// reconciled value.
func FresherActivity(incumbent, candidate *Activity) *Activity {
	if candidate == nil {
		return incumbent
	}
	if incumbent == nil {
		return candidate
	}
	if candidate.ObservedAt().After(incumbent.ObservedAt()) {
		return candidate
	}
	return incumbent
}
