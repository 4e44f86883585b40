package api

import (
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/engine"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/telemetry"
)

// CurrentAppView is the serialized current-activity state.
type CurrentAppView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PackageName     string  `json:"packageName,omitempty"`
	Category        string  `json:"category,omitempty"`
	IconURL         string  `json:"iconUrl,omitempty"`
	DurationMinutes float64 `json:"durationMinutes"`
	DurationLabel   string  `json:"durationLabel"`
	ObservedAt      string  `json:"observedAt,omitempty"`
	ObservedAgo     string  `json:"observedAgo,omitempty"`
}

// DayView is one serialized history entry.
type DayView struct {
	ID           string       `json:"id"`
	Date         string       `json:"date"`
	DayLabel     string       `json:"dayLabel"`
	TotalMinutes float64      `json:"totalMinutes"`
	TotalLabel   string       `json:"totalLabel"`
	Hourly       []HourlyView `json:"hourly"`
}

// HourlyView is one hour bucket of a day.
type HourlyView struct {
	Hour    string  `json:"hour"`
	Minutes float64 `json:"minutes"`
}

// WeeklyView is one bar of the weekly chart.
type WeeklyView struct {
	Label   string  `json:"label"`
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
}

// CategoryView is one slice of the category chart.
type CategoryView struct {
	Category string  `json:"category"`
	Minutes  float64 `json:"minutes"`
	Label    string  `json:"label"`
}

// TopAppView is one entry of the ranked app list.
type TopAppView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PackageName string  `json:"packageName,omitempty"`
	Category    string  `json:"category,omitempty"`
	IconURL     string  `json:"iconUrl,omitempty"`
	Minutes     float64 `json:"minutes"`
	Label       string  `json:"label"`
}

// TelemetryResponse is the composed dashboard payload.
type TelemetryResponse struct {
	CurrentApp            *CurrentAppView `json:"currentApp"`
	UsageHistory          []DayView       `json:"usageHistory"`
	HourlyToday           []HourlyView    `json:"hourlyToday"`
	WeeklyUsage           []WeeklyView    `json:"weeklyUsage"`
	TodayTotalMinutes     float64         `json:"todayTotalMinutes"`
	TodayTotalLabel       string          `json:"todayTotalLabel"`
	YesterdayTotalMinutes float64         `json:"yesterdayTotalMinutes"`
	TrendMinutes          float64         `json:"trendMinutes"`
	CategoryChart         []CategoryView  `json:"categoryChart"`
	TopApps               []TopAppView    `json:"topApps"`
	LongestDay            *DayView        `json:"longestDay"`
	Loading               bool            `json:"loading"`
	Advisories            []string        `json:"advisories,omitempty"`
}

// LocationPointView is one serialized position fix.
type LocationPointView struct {
	ID             string   `json:"id"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Accuracy       float64  `json:"accuracy,omitempty"`
	Timestamp      string   `json:"timestamp"`
	TimestampAgo   string   `json:"timestampAgo"`
	Altitude       *float64 `json:"altitude,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	Heading        *float64 `json:"heading,omitempty"`
	BatteryPercent *float64 `json:"batteryPercent,omitempty"`
	IsMock         *bool    `json:"isMock,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	ActivityType   string   `json:"activityType,omitempty"`
}

// LocationResponse is the reconciled position payload.
type LocationResponse struct {
	Current     *LocationPointView  `json:"currentLocation"`
	Trail       []LocationPointView `json:"locationHistory"`
	AwaitingFix bool                `json:"awaitingFix"`
	Loading     bool                `json:"loading"`
	Advisories  []string            `json:"advisories,omitempty"`
}

// AppView is one serialized inventory entry.
type AppView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PackageName  string  `json:"packageName,omitempty"`
	Category     string  `json:"category"`
	UsageMinutes float64 `json:"usageMinutes"`
	UsageLabel   string  `json:"usageLabel"`
	Blocked      bool    `json:"blocked"`
	LastUsed     string  `json:"lastUsed,omitempty"`
	LastUsedAgo  string  `json:"lastUsedAgo,omitempty"`
}

// AppStatsView summarizes the inventory.
type AppStatsView struct {
	Total        int     `json:"total"`
	Blocked      int     `json:"blocked"`
	Allowed      int     `json:"allowed"`
	TotalMinutes float64 `json:"totalMinutes"`
	TotalLabel   string  `json:"totalLabel"`
	Categories   int     `json:"categories"`
}

// AppsResponse is the inventory payload.
type AppsResponse struct {
	Apps       []AppView    `json:"apps"`
	Stats      AppStatsView `json:"stats"`
	Loading    bool         `json:"loading"`
	Advisories []string     `json:"advisories,omitempty"`
}

func (h *Handler) toTelemetryView(view engine.View) TelemetryResponse {
	now := h.now()

	resp := TelemetryResponse{
		UsageHistory:          make([]DayView, 0, len(view.UsageHistory)),
		HourlyToday:           toHourlyViews(view.HourlyToday),
		WeeklyUsage:           make([]WeeklyView, 0, len(view.WeeklyUsage)),
		TodayTotalMinutes:     view.TodayTotalMinutes,
		TodayTotalLabel:       fields.FormatMinutes(view.TodayTotalMinutes),
		YesterdayTotalMinutes: view.YesterdayTotalMinutes,
		TrendMinutes:          view.TrendMinutes,
		CategoryChart:         make([]CategoryView, 0, len(view.CategoryChart)),
		TopApps:               make([]TopAppView, 0, len(view.TopApps)),
		Loading:               view.Loading,
		Advisories:            view.Advisories,
	}

	if view.CurrentApp != nil {
		resp.CurrentApp = toCurrentAppView(*view.CurrentApp, now)
	}
	for _, day := range view.UsageHistory {
		resp.UsageHistory = append(resp.UsageHistory, toDayView(day))
	}
	for _, point := range view.WeeklyUsage {
		resp.WeeklyUsage = append(resp.WeeklyUsage, WeeklyView(point))
	}
	for _, total := range view.CategoryChart {
		resp.CategoryChart = append(resp.CategoryChart, CategoryView{
			Category: total.Category,
			Minutes:  total.Minutes,
			Label:    fields.FormatMinutes(total.Minutes),
		})
	}
	for _, app := range view.TopApps {
		resp.TopApps = append(resp.TopApps, TopAppView{
			ID:          app.ID,
			Name:        app.Name,
			PackageName: app.PackageName,
			Category:    app.Category,
			IconURL:     app.IconURL,
			Minutes:     app.Minutes,
			Label:       fields.FormatMinutes(app.Minutes),
		})
	}
	if view.LongestDay != nil {
		day := toDayView(*view.LongestDay)
		resp.LongestDay = &day
	}
	return resp
}

func toCurrentAppView(activity telemetry.Activity, now time.Time) *CurrentAppView {
	return &CurrentAppView{
		ID:              activity.ID,
		Name:            activity.Name,
		PackageName:     activity.PackageName,
		Category:        activity.Category,
		IconURL:         activity.IconURL,
		DurationMinutes: activity.DurationMinutes,
		DurationLabel:   fields.FormatMinutes(activity.DurationMinutes),
		ObservedAt:      formatTime(activity.ObservedAt()),
		ObservedAgo:     telemetry.FormatRelative(now, activity.ObservedAt()),
	}
}

func toDayView(day telemetry.DayEntry) DayView {
	return DayView{
		ID:           day.ID,
		Date:         day.Date,
		DayLabel:     day.DayLabel,
		TotalMinutes: day.TotalMinutes,
		TotalLabel:   fields.FormatMinutes(day.TotalMinutes),
		Hourly:       toHourlyViews(day.Hourly),
	}
}

func toHourlyViews(points []telemetry.HourlyPoint) []HourlyView {
	views := make([]HourlyView, 0, len(points))
	for _, point := range points {
		views = append(views, HourlyView{Hour: point.HourLabel, Minutes: point.Minutes})
	}
	return views
}

func (h *Handler) toLocationView(view engine.LocationView) LocationResponse {
	now := h.now()

	resp := LocationResponse{
		Trail:       make([]LocationPointView, 0, len(view.Trail)),
		AwaitingFix: view.AwaitingFix,
		Loading:     view.Loading,
		Advisories:  view.Advisories,
	}
	for _, point := range view.Trail {
		resp.Trail = append(resp.Trail, toLocationPointView(point, now))
	}
	if view.Current != nil {
		current := toLocationPointView(*view.Current, now)
		resp.Current = &current
	}
	return resp
}

func toLocationPointView(point telemetry.LocationPoint, now time.Time) LocationPointView {
	return LocationPointView{
		ID:             point.ID,
		Latitude:       point.Latitude,
		Longitude:      point.Longitude,
		Accuracy:       point.Accuracy,
		Timestamp:      formatTime(point.Timestamp),
		TimestampAgo:   telemetry.FormatRelative(now, point.Timestamp),
		Altitude:       point.Altitude,
		Speed:          point.Speed,
		Heading:        point.Heading,
		BatteryPercent: point.BatteryLevel,
		IsMock:         point.IsMock,
		Provider:       point.Provider,
		ActivityType:   point.ActivityType,
	}
}

func (h *Handler) toAppsView(view engine.AppsView) AppsResponse {
	now := h.now()

	resp := AppsResponse{
		Apps: make([]AppView, 0, len(view.Apps)),
		Stats: AppStatsView{
			Total:        view.Stats.Total,
			Blocked:      view.Stats.Blocked,
			Allowed:      view.Stats.Total - view.Stats.Blocked,
			TotalMinutes: view.Stats.TotalMinutes,
			TotalLabel:   fields.FormatMinutes(view.Stats.TotalMinutes),
			Categories:   view.Stats.Categories,
		},
		Loading:    view.Loading,
		Advisories: view.Advisories,
	}
	for _, app := range view.Apps {
		resp.Apps = append(resp.Apps, AppView{
			ID:           app.ID,
			Name:         app.Name,
			PackageName:  app.PackageName,
			Category:     app.Category,
			UsageMinutes: app.UsageMinutes,
			UsageLabel:   app.UsageLabel,
			Blocked:      app.Blocked,
			LastUsed:     formatTime(app.LastUsed),
			LastUsedAgo:  telemetry.FormatRelative(now, app.LastUsed),
		})
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
