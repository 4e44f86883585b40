package engine

import (
	"errors"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/fields"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/telemetry"
)

// Source names, used in logs and metrics labels.
const (
	sourceSessions   = "sessions"
	sourceChildDoc   = "child_doc"
	sourceHistory    = "daily_usage"
	sourceKeyedDaily = "keyed_daily_usage"
	sourceAggregate  = "usage_aggregate"
	sourcePings      = "location_pings"
	sourceInventory  = "app_inventory"
)

const (
	childrenColl   = "children"
	keyedDailyColl = "dailyUsage"
	aggregateColl  = "appUsageAggregates"

	// At most two alternate device identifiers are honored per child doc.
	maxAliasesPerDoc = 2
)

var errNotConstructible = errors.New("record missing required fields")

func (e *Engine) childPath(sub string) string {
	return childrenColl + "/" + e.childID + "/" + sub
}

func (e *Engine) attachSources() {
	e.aliases = []string{e.childID}

	e.addCancel(e.store.WatchCollection(e.childPath("sessions"),
		func(docs []docstore.Document) { e.post(func() { e.onSessions(docs) }) },
		func(err error) { e.post(func() { e.onSessionsError(err) }) },
	))

	e.addCancel(e.store.WatchDocument(childrenColl, e.childID,
		func(data docstore.RawRecord, exists bool) { e.post(func() { e.onChildDoc(data, exists) }) },
		func(err error) { e.post(func() { e.onChildDocError(err) }) },
	))

	e.addCancel(e.store.WatchCollection(e.childPath("dailyUsage"),
		func(docs []docstore.Document) { e.post(func() { e.onHistory(docs) }) },
		func(err error) { e.post(func() { e.onHistoryError(err) }) },
	))

	e.addCancel(e.store.WatchDocument(aggregateColl, e.childID,
		func(data docstore.RawRecord, exists bool) { e.post(func() { e.onAggregate(data, exists) }) },
		func(err error) { e.post(func() { e.onAggregateError(err) }) },
	))

	e.addCancel(e.store.WatchCollection(e.childPath("locations"),
		func(docs []docstore.Document) { e.post(func() { e.onPings(docs) }) },
		func(err error) { e.post(func() { e.onPingsError(err) }) },
	))

	e.addCancel(e.store.WatchCollection(e.childPath("apps"),
		func(docs []docstore.Document) { e.post(func() { e.onApps(docs) }) },
		func(err error) { e.post(func() { e.onAppsError(err) }) },
	))
}

// onSessions reduces the session collection to its freshest entry and lets
// it fight the incumbent. The incumbent never regresses to unknown.
func (e *Engine) onSessions(docs []docstore.Document) {
	e.sessionState = sourceState{loaded: true}

	var freshest *telemetry.Activity
	for _, doc := range docs {
		activity, ok := telemetry.NormalizeActivity(doc.ID, doc.Data)
		if !ok {
			e.dropRecord(sourceSessions, doc.ID, errNotConstructible)
			continue
		}
		freshest = telemetry.FresherActivity(freshest, &activity)
	}
	e.activity = telemetry.FresherActivity(e.activity, freshest)
}

func (e *Engine) onSessionsError(err error) {
	e.sessionState = sourceState{loaded: true, err: err}
	e.sourceError(sourceSessions, err)
}

// onChildDoc serves three resolvers at once: the embedded current-activity
// field, the embedded current-location field, and the device identifier
// aliases the fallback paths query by.
func (e *Engine) onChildDoc(data docstore.RawRecord, exists bool) {
	e.embeddedState = sourceState{loaded: true}
	e.embeddedFix = sourceState{loaded: true}

	if !exists {
		return
	}

	if raw, ok := data["currentApp"].(map[string]any); ok {
		if activity, ok := telemetry.NormalizeActivity("children/"+e.childID+"/currentApp", raw); ok {
			e.activity = telemetry.FresherActivity(e.activity, &activity)
		} else {
			e.dropRecord(sourceChildDoc, e.childID, errNotConstructible)
		}
	}

	e.embeddedPoint = nil
	for _, key := range []string{"currentLocation", "latestLocation", "location"} {
		raw, ok := data[key].(map[string]any)
		if !ok {
			continue
		}
		point, ok := telemetry.NormalizeLocation("children/"+e.childID+"/"+key, raw)
		if !ok {
			e.dropRecord(sourceChildDoc, e.childID, errNotConstructible)
			break
		}
		e.embeddedPoint = &point
		break
	}

	e.refreshAliases(data)
}

func (e *Engine) onChildDocError(err error) {
	e.embeddedState = sourceState{loaded: true, err: err}
	e.embeddedFix = sourceState{loaded: true, err: err}
	e.embeddedPoint = nil
	e.sourceError(sourceChildDoc, err)
}

// refreshAliases collects up to two alternate device identifiers from the
// child document. The child identifier itself always stays first.
func (e *Engine) refreshAliases(data docstore.RawRecord) {
	aliases := []string{e.childID}
	for _, key := range []string{"deviceId", "androidId"} {
		value, ok := fields.Text(data, key)
		if !ok || value == e.childID {
			continue
		}
		if containsString(aliases, value) {
			continue
		}
		aliases = append(aliases, value)
		if len(aliases) > maxAliasesPerDoc+1 {
			aliases = aliases[:maxAliasesPerDoc+1]
			break
		}
	}
	e.aliases = aliases
	if e.fallbackNeeded() {
		e.attachAliasWatches()
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func (e *Engine) onHistory(docs []docstore.Document) {
	e.historyState = sourceState{loaded: true}

	entries := make([]telemetry.DayEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, telemetry.NormalizeDayEntry(doc.ID, doc.Data, e.opts.Now()))
	}
	telemetry.SortDays(entries)
	e.primaryDays = entries

	if e.fallbackNeeded() {
		e.attachAliasWatches()
	}
}

func (e *Engine) onHistoryError(err error) {
	e.historyState = sourceState{loaded: true, err: err}
	e.primaryDays = nil
	e.sourceError(sourceHistory, err)
	e.attachAliasWatches()
}

func (e *Engine) onAggregate(data docstore.RawRecord, exists bool) {
	e.aggregateState = sourceState{loaded: true}

	if !exists {
		e.aggregate = nil
		if e.fallbackNeeded() {
			e.attachAliasWatches()
		}
		return
	}
	aggregate := telemetry.NormalizeAggregate(data)
	e.aggregate = &aggregate
}

func (e *Engine) onAggregateError(err error) {
	e.aggregateState = sourceState{loaded: true, err: err}
	e.aggregate = nil
	e.sourceError(sourceAggregate, err)
	e.attachAliasWatches()
}

// fallbackNeeded reports whether the keyed daily collection has to stand in
// for a primary source. History falls back only when the primary collection
// loaded empty; the aggregate falls back when its document is missing.
func (e *Engine) fallbackNeeded() bool {
	historyEmpty := e.historyState.loaded && len(e.primaryDays) == 0
	aggregateMissing := e.aggregateState.loaded && e.aggregate == nil
	return historyEmpty || aggregateMissing
}

// attachAliasWatches lazily subscribes a doc-id range watch per device alias
// over the keyed daily collection. Each alias keeps its own cache; watches
// survive for the life of the engine once attached.
func (e *Engine) attachAliasWatches() {
	for _, alias := range e.aliases {
		if e.aliasWatched[alias] {
			continue
		}
		e.aliasWatched[alias] = true
		alias := alias
		e.addCancel(e.store.WatchRange(keyedDailyColl, alias+"_", alias+"_￿",
			func(docs []docstore.Document) { e.post(func() { e.onKeyedDaily(alias, docs) }) },
			func(err error) { e.post(func() { e.onKeyedDailyError(alias, err) }) },
		))
	}
}

// onKeyedDaily folds one alias's keyed documents into both fallback caches:
// day entries for the history substitute and a derived aggregate candidate.
func (e *Engine) onKeyedDaily(alias string, docs []docstore.Document) {
	entries := make([]telemetry.DayEntry, 0, len(docs))
	var freshest *telemetry.AggregateCandidate

	for _, doc := range docs {
		entry, ok := telemetry.DayEntryFromKeyed(doc.ID, doc.Data)
		if !ok {
			e.dropRecord(sourceKeyedDaily, doc.ID, errNotConstructible)
			continue
		}
		entries = append(entries, entry)

		if candidate, ok := telemetry.DeriveAggregate(doc.ID, doc.Data); ok {
			freshest = telemetry.FresherAggregate(freshest, &candidate)
		}
	}

	telemetry.SortDays(entries)
	e.aliasDays[alias] = entries
	e.aliasAggs[alias] = freshest
}

func (e *Engine) onKeyedDailyError(alias string, err error) {
	delete(e.aliasDays, alias)
	delete(e.aliasAggs, alias)
	e.sourceError(sourceKeyedDaily, err)
}

func (e *Engine) onPings(docs []docstore.Document) {
	e.pingState = sourceState{loaded: true}

	points := make([]telemetry.LocationPoint, 0, len(docs))
	for _, doc := range docs {
		point, ok := telemetry.NormalizeLocation(e.childPath("locations")+"/"+doc.ID, doc.Data)
		if !ok {
			e.dropRecord(sourcePings, doc.ID, errNotConstructible)
			continue
		}
		points = append(points, point)
	}
	e.pings = points
}

func (e *Engine) onPingsError(err error) {
	e.pingState = sourceState{loaded: true, err: err}
	e.pings = nil
	e.sourceError(sourcePings, err)
}

func (e *Engine) onApps(docs []docstore.Document) {
	e.appsState = sourceState{loaded: true}

	apps := make([]telemetry.App, 0, len(docs))
	for _, doc := range docs {
		apps = append(apps, telemetry.NormalizeApp(doc.ID, doc.Data))
	}
	telemetry.SortApps(apps)
	e.apps = apps
}

func (e *Engine) onAppsError(err error) {
	e.appsState = sourceState{loaded: true, err: err}
	e.apps = nil
	e.sourceError(sourceInventory, err)
}
