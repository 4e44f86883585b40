package telemetry

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
)

// LocationPoint is one normalized position fix. Latitude and Longitude are
// required for the point to exist; everything else is optional and pointers
// distinguish absent from zero.
type LocationPoint struct {
	ID        string
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time

	Altitude         *float64
	Speed            *float64
	Heading          *float64
	ProviderAccuracy *float64
	BatteryLevel     *float64
	IsMock           *bool

	Provider     string
	Source       string
	ActivityType string
}

// NormalizeLocation builds a LocationPoint from a raw record. It fails only
// when latitude or longitude cannot be resolved to a number.
func NormalizeLocation(id string, rec map[string]any) (LocationPoint, bool) {
	lat, ok := fields.NumberOrString(firstPresent(rec, "latitude", "lat"))
	if !ok {
		return LocationPoint{}, false
	}
	lng, ok := fields.NumberOrString(firstPresent(rec, "longitude", "lng", "lon"))
	if !ok {
		return LocationPoint{}, false
	}

	point := LocationPoint{
		ID:        id,
		Latitude:  lat,
		Longitude: lng,
	}

	if accuracy, ok := fields.NumberOrString(firstPresent(rec, "accuracy", "horizontalAccuracy")); ok && accuracy > 0 {
		point.Accuracy = accuracy
	}

	if ts, ok := fields.TimestampField(rec,
		"timestamp", "recordedAt", "createdAt", "updatedAt", "generatedAt"); ok {
		point.Timestamp = ts
	} else {
		point.Timestamp = time.Now().UTC()
	}

	point.Altitude = optionalNumber(rec, "altitude", "alt")
	point.Speed = optionalNumber(rec, "speed", "velocity")
	point.Heading = optionalNumber(rec, "heading", "bearing")
	point.ProviderAccuracy = optionalNumber(rec, "providerAccuracy", "verticalAccuracy")

	if battery, ok := fields.NumberOrString(firstPresent(rec, "batteryLevel", "battery", "deviceBattery")); ok {
		percent := BatteryPercent(battery)
		point.BatteryLevel = &percent
	}

	if mock, ok := firstPresent(rec, "isMock", "mocked").(bool); ok {
		point.IsMock = &mock
	}

	point.Provider, _ = fields.Text(rec, "provider", "providerName", "locationProvider", "source")
	point.Source, _ = fields.Text(rec, "source")
	point.ActivityType, _ = fields.Text(rec, "activityType", "activity")

	return point, true
}

func optionalNumber(rec map[string]any, keys ...string) *float64 {
	value, ok := fields.NumberOrString(firstPresent(rec, keys...))
	if !ok {
		return nil
	}
	return &value
}

// BatteryPercent interprets a battery reading as a percentage. Values at or
// below 1 are treated as fractions and scaled up.
func BatteryPercent(value float64) float64 {
	if value <= 1 {
		value *= 100
	}
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// Key identifies a point for deduplication. Two fixes sharing id, timestamp
// and coordinates are the same observation seen through different feeds.
func (p LocationPoint) Key() string {
	return strings.Join([]string{
		p.ID,
		strconv.FormatInt(p.Timestamp.UnixMilli(), 10),
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
	}, "|")
}

// MergeLocations combines an existing trail with newly observed points,
// drops duplicates and returns the result newest first, capped at limit.
// A limit of zero or less leaves the trail unbounded.
func MergeLocations(existing, incoming []LocationPoint, limit int) []LocationPoint {
	merged := make([]LocationPoint, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, batch := range [][]LocationPoint{existing, incoming} {
		for _, point := range batch {
			key := point.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, point)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
