package engine

import (
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/observability"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/telemetry"
)

// View is the composed dashboard snapshot for one child. It is immutable
// once published; readers get a copy.
type View struct {
	CurrentApp *telemetry.Activity

	UsageHistory []telemetry.DayEntry
	Aggregate    *telemetry.UsageAggregate

	HourlyToday           []telemetry.HourlyPoint
	WeeklyUsage           []telemetry.WeeklyPoint
	TodayTotalMinutes     float64
	YesterdayTotalMinutes float64
	TrendMinutes          float64
	CategoryChart         []telemetry.CategoryTotal
	TopApps               []telemetry.TopApp
	LongestDay            *telemetry.DayEntry

	// Loading holds until each primary source has answered once, with
	// either data or an error.
	Loading bool
	// Advisories carries one user-facing string per degraded source.
	Advisories []string
}

// LocationView is the reconciled position state for one child.
type LocationView struct {
	Current *telemetry.LocationPoint
	Trail   []telemetry.LocationPoint
	// AwaitingFix is surfaced when no source has ever produced a point.
	AwaitingFix bool
	Loading     bool
	Advisories  []string
}

// AppsView is the normalized installed-app inventory.
type AppsView struct {
	Apps       []telemetry.App
	Stats      telemetry.AppStats
	Loading    bool
	Advisories []string
}

func emptyView() View {
	return View{Loading: true}
}

// Advisory strings per degraded source, worded for the dashboard.
const (
	advisoryActivity  = "Current app may be out of date"
	advisoryHistory   = "Screen time history is temporarily unavailable"
	advisoryAggregate = "App usage summary is temporarily unavailable"
	advisoryLocation  = "Location updates are temporarily unavailable"
	advisoryApps      = "App list is temporarily unavailable"
)

// publish recomputes all three views from the dispatch-confined state and
// swaps them in for readers. Runs on the dispatch goroutine after every
// state change.
func (e *Engine) publish() {
	view := e.composeView()
	locationView := e.composeLocationView()
	appsView := e.composeAppsView()

	e.viewMu.Lock()
	e.view = view
	e.locationView = locationView
	e.appsView = appsView
	e.viewMu.Unlock()

	observability.RecordViewPublished(e.opts.Now())
}

func (e *Engine) composeView() View {
	view := View{
		CurrentApp: e.activity,
		Loading:    !(e.sessionState.loaded && e.historyState.loaded && e.aggregateState.loaded),
	}

	view.UsageHistory = e.effectiveHistory()
	view.Aggregate = e.effectiveAggregate()

	now := e.opts.Now()
	todayKey := telemetry.DateKey(now)

	if today, ok := telemetry.TodayEntry(view.UsageHistory, todayKey); ok {
		view.HourlyToday = today.Hourly
		view.TodayTotalMinutes = today.TotalMinutes
		if yesterday, ok := telemetry.YesterdayEntry(view.UsageHistory, today.Date); ok {
			view.YesterdayTotalMinutes = yesterday.TotalMinutes
			view.TrendMinutes = telemetry.TrendMinutes(today, yesterday)
		}
	}

	view.WeeklyUsage = telemetry.WeeklyUsage(view.UsageHistory)
	if longest, ok := telemetry.LongestDay(view.UsageHistory); ok {
		view.LongestDay = &longest
	}

	if view.Aggregate != nil {
		view.CategoryChart = view.Aggregate.CategoryTotals
		view.TopApps = telemetry.TopN(view.Aggregate.TopApps, e.opts.TopAppLimit)
	}

	if e.sessionState.err != nil || e.embeddedState.err != nil {
		view.Advisories = append(view.Advisories, advisoryActivity)
	}
	if e.historyState.err != nil {
		view.Advisories = append(view.Advisories, advisoryHistory)
	}
	if e.aggregateState.err != nil {
		view.Advisories = append(view.Advisories, advisoryAggregate)
	}
	return view
}

// effectiveHistory prefers the primary per-day collection wholesale; the
// alias fallback is substituted only when the primary loaded empty.
func (e *Engine) effectiveHistory() []telemetry.DayEntry {
	if len(e.primaryDays) > 0 {
		return e.primaryDays
	}
	if !e.historyState.loaded && e.historyState.err == nil {
		return nil
	}
	return telemetry.MergeFallbackDays(e.aliases, e.aliasDays)
}

// effectiveAggregate prefers the precomputed document; when it is missing
// the freshest per-alias derived candidate is substituted. The two totals
// are never combined.
func (e *Engine) effectiveAggregate() *telemetry.UsageAggregate {
	if e.aggregate != nil {
		return e.aggregate
	}
	if !e.aggregateState.loaded && e.aggregateState.err == nil {
		return nil
	}

	var freshest *telemetry.AggregateCandidate
	for _, alias := range e.aliases {
		freshest = telemetry.FresherAggregate(freshest, e.aliasAggs[alias])
	}
	if freshest == nil {
		return nil
	}
	aggregate := freshest.Aggregate
	return &aggregate
}

func (e *Engine) composeLocationView() LocationView {
	var embedded []telemetry.LocationPoint
	if e.embeddedPoint != nil {
		embedded = []telemetry.LocationPoint{*e.embeddedPoint}
	}

	merged := telemetry.MergeLocations(e.pings, embedded, e.opts.TrailLimit)

	view := LocationView{Trail: merged}
	if len(merged) > 0 {
		current := merged[0]
		view.Current = &current
	} else {
		answered := (e.pingState.loaded && e.embeddedFix.loaded) || e.firstFixDue
		view.AwaitingFix = answered
		view.Loading = !answered
	}

	if e.pingState.err != nil || e.embeddedFix.err != nil {
		view.Advisories = append(view.Advisories, advisoryLocation)
	}
	return view
}

func (e *Engine) composeAppsView() AppsView {
	view := AppsView{
		Apps:    e.apps,
		Stats:   telemetry.SummarizeApps(e.apps),
		Loading: !e.appsState.loaded,
	}
	if e.appsState.err != nil {
		view.Advisories = append(view.Advisories, advisoryApps)
	}
	return view
}

// Snapshot returns the last published dashboard view.
func (e *Engine) Snapshot() View {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.view
}

// LocationSnapshot returns the last published location view.
func (e *Engine) LocationSnapshot() LocationView {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.locationView
}

// AppsSnapshot returns the last published inventory view.
func (e *Engine) AppsSnapshot() AppsView {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.appsView
}
