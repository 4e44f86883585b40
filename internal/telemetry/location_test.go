package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLocationRequiresCoordinates(t *testing.T) {
	_, ok := NormalizeLocation("ping-1", map[string]any{"latitude": 37.7749})
	require.False(t, ok)

	_, ok = NormalizeLocation("ping-1", map[string]any{"longitude": -122.4194})
	require.False(t, ok)

	point, ok := NormalizeLocation("ping-1", map[string]any{
		"lat": 37.7749,
		"lng": -122.4194,
	})
	require.True(t, ok)
	require.Equal(t, 37.7749, point.Latitude)
	require.Equal(t, -122.4194, point.Longitude)
	require.False(t, point.Timestamp.IsZero())
}

func TestNormalizeLocationOptionalFields(t *testing.T) {
	at := time.Date(2026, time.June, 5, 8, 0, 0, 0, time.UTC)

	point, ok := NormalizeLocation("ping-2", map[string]any{
		"latitude":   37.7749,
		"longitude":  -122.4194,
		"accuracy":   12.5,
		"recordedAt": float64(at.UnixMilli()),
		"alt":        30.0,
		"velocity":   1.5,
		"bearing":    270.0,
		"battery":    0.8,
		"mocked":     true,
		"provider":   "fused",
		"activity":   "walking",
	})
	require.True(t, ok)
	require.Equal(t, 12.5, point.Accuracy)
	require.Equal(t, at, point.Timestamp)
	require.NotNil(t, point.Altitude)
	require.Equal(t, 30.0, *point.Altitude)
	require.NotNil(t, point.Speed)
	require.Equal(t, 1.5, *point.Speed)
	require.NotNil(t, point.Heading)
	require.Equal(t, 270.0, *point.Heading)
	require.NotNil(t, point.BatteryLevel)
	require.Equal(t, 80.0, *point.BatteryLevel)
	require.NotNil(t, point.IsMock)
	require.True(t, *point.IsMock)
	require.Equal(t, "fused", point.Provider)
	require.Equal(t, "walking", point.ActivityType)
}

func TestBatteryPercent(t *testing.T) {
	require.Equal(t, 80.0, BatteryPercent(0.8))
	require.Equal(t, 100.0, BatteryPercent(1.0))
	require.Equal(t, 55.0, BatteryPercent(55))
	require.Equal(t, 100.0, BatteryPercent(140))
	require.Equal(t, 0.0, BatteryPercent(-3))
}

func TestMergeLocationsDedupesAndSorts(t *testing.T) {
	at := time.Date(2026, time.June, 5, 8, 0, 0, 0, time.UTC)

	a := LocationPoint{ID: "p1", Latitude: 37.7749, Longitude: -122.4194, Timestamp: at}
	b := LocationPoint{ID: "p2", Latitude: 37.7751, Longitude: -122.4201, Timestamp: at.Add(time.Minute)}
	duplicate := a

	merged := MergeLocations([]LocationPoint{a, b}, []LocationPoint{duplicate}, 20)

	require.Len(t, merged, 2)
	require.Equal(t, "p2", merged[0].ID)
	require.Equal(t, "p1", merged[1].ID)

	// Merging is idempotent.
	again := MergeLocations(merged, merged, 20)
	require.Equal(t, merged, again)
}

func TestMergeLocationsAppliesLimit(t *testing.T) {
	base := time.Date(2026, time.June, 5, 8, 0, 0, 0, time.UTC)

	var points []LocationPoint
	for i := 0; i < 25; i++ {
		points = append(points, LocationPoint{
			ID:        "p",
			Latitude:  37.0,
			Longitude: -122.0,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	merged := MergeLocations(points, nil, 20)
	require.Len(t, merged, 20)
	require.Equal(t, base.Add(24*time.Minute), merged[0].Timestamp)
}

func TestMergeLocationsEmbeddedNewerThanPing(t *testing.T) {
	at := time.Date(2026, time.June, 5, 8, 0, 0, 0, time.UTC)

	embedded := LocationPoint{ID: "embedded", Latitude: 37.775, Longitude: -122.4195, Timestamp: at}
	ping := LocationPoint{ID: "ping", Latitude: 37.7749, Longitude: -122.4194, Timestamp: at.Add(-5 * time.Minute)}

	merged := MergeLocations([]LocationPoint{ping}, []LocationPoint{embedded}, 20)

	require.Len(t, merged, 2)
	require.Equal(t, "embedded", merged[0].ID)
	require.Equal(t, "ping", merged[1].ID)
}
