package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/engine"
)

var testNow = time.Date(2026, time.June, 5, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, store docstore.Store) *Handler {
	t.Helper()
	registry := engine.NewRegistry(store, engine.Options{
		Now: func() time.Time { return testNow },
	})
	t.Cleanup(registry.Close)

	handler := NewHandler(registry, nil)
	handler.now = func() time.Time { return testNow }
	return handler
}

func doRequest(handler *Handler, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestTelemetryEndpoint(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	require.NoError(t, store.Set(ctx, "children/child-1/sessions", "s1", docstore.RawRecord{
		"name":        "YouTube",
		"lastUpdated": float64(testNow.Add(-2 * time.Minute).UnixMilli()),
	}))
	require.NoError(t, store.Set(ctx, "children/child-1/dailyUsage", "d1", docstore.RawRecord{
		"date":         "2026-06-05",
		"totalMinutes": 90.0,
	}))
	require.NoError(t, store.Set(ctx, "children/child-1/dailyUsage", "d2", docstore.RawRecord{
		"date":         "2026-06-04",
		"totalMinutes": 60.0,
	}))

	handler := newTestHandler(t, store)

	var resp TelemetryResponse
	require.Eventually(t, func() bool {
		rec := doRequest(handler, http.MethodGet, "/v1/children/child-1/telemetry", "")
		if rec.Code != http.StatusOK {
			return false
		}
		resp = TelemetryResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return !resp.Loading && resp.CurrentApp != nil && len(resp.UsageHistory) == 2
	}, 2*time.Second, 10*time.Millisecond, "telemetry view should load")

	require.Equal(t, "YouTube", resp.CurrentApp.Name)
	require.Equal(t, "2m ago", resp.CurrentApp.ObservedAgo)
	require.Equal(t, 90.0, resp.TodayTotalMinutes)
	require.Equal(t, "1h 30m", resp.TodayTotalLabel)
	require.Equal(t, 60.0, resp.YesterdayTotalMinutes)
	require.Equal(t, 30.0, resp.TrendMinutes)
	require.Len(t, resp.WeeklyUsage, 2)
}

func TestLocationEndpoint(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	require.NoError(t, store.Set(ctx, "children/child-1/locations", "p1", docstore.RawRecord{
		"latitude":  37.7749,
		"longitude": -122.4194,
		"timestamp": float64(testNow.Add(-time.Minute).UnixMilli()),
	}))

	handler := newTestHandler(t, store)

	var resp LocationResponse
	require.Eventually(t, func() bool {
		rec := doRequest(handler, http.MethodGet, "/v1/children/child-1/location", "")
		if rec.Code != http.StatusOK {
			return false
		}
		resp = LocationResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.Current != nil
	}, 2*time.Second, 10*time.Millisecond, "location view should load")

	require.Equal(t, 37.7749, resp.Current.Latitude)
	require.Len(t, resp.Trail, 1)
	require.False(t, resp.AwaitingFix)
}

func TestAppsEndpoint(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	require.NoError(t, store.Set(ctx, "children/child-1/apps", "a1", docstore.RawRecord{
		"name":         "YouTube",
		"usageSeconds": 5400.0,
		"isBlocked":    true,
	}))
	require.NoError(t, store.Set(ctx, "children/child-1/apps", "a2", docstore.RawRecord{
		"name":         "Calculator",
		"usageMinutes": 5.0,
	}))

	handler := newTestHandler(t, store)

	var resp AppsResponse
	require.Eventually(t, func() bool {
		rec := doRequest(handler, http.MethodGet, "/v1/children/child-1/apps", "")
		if rec.Code != http.StatusOK {
			return false
		}
		resp = AppsResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return len(resp.Apps) == 2
	}, 2*time.Second, 10*time.Millisecond, "apps view should load")

	require.Equal(t, "YouTube", resp.Apps[0].Name)
	require.Equal(t, "1h 30m", resp.Apps[0].UsageLabel)
	require.True(t, resp.Apps[0].Blocked)
	require.Equal(t, 2, resp.Stats.Total)
	require.Equal(t, 1, resp.Stats.Blocked)
	require.Equal(t, 1, resp.Stats.Allowed)
	require.Equal(t, 95.0, resp.Stats.TotalMinutes)
}

func TestScreeningEndpointScoresAnnotation(t *testing.T) {
	handler := newTestHandler(t, docstore.NewMemory())

	body := `{"annotation":{"adult":"LIKELY","violence":"UNLIKELY","racy":"POSSIBLE"}}`
	rec := doRequest(handler, http.MethodPost, "/v1/screening/score", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.InDelta(t, 0.49, resp["riskScore"].(float64), 1e-9)
	require.Equal(t, true, resp["shouldBlock"])
}

func TestScreeningEndpointRejectsEmptyRequest(t *testing.T) {
	handler := newTestHandler(t, docstore.NewMemory())

	rec := doRequest(handler, http.MethodPost, "/v1/screening/score", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(handler, http.MethodPost, "/v1/screening/score", `{"imageUrl":"https://img.example.com/x.png"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChildrenRouting(t *testing.T) {
	handler := newTestHandler(t, docstore.NewMemory())

	rec := doRequest(handler, http.MethodGet, "/v1/children/child-1/unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(handler, http.MethodGet, "/v1/children/child-1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(handler, http.MethodPost, "/v1/children/child-1/telemetry", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, docstore.NewMemory())

	rec := doRequest(handler, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
