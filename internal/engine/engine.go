// Package engine reconciles the raw telemetry streams of one monitored child
// into a consistent typed view. Every source subscription posts its updates
// onto a single dispatch goroutine, so reconciliation state needs no locks;
// finished views are published under a read lock for the HTTP layer.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/telemetry"
)

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	// TrailLimit bounds the location trail exposed to readers.
	TrailLimit int
	// TopAppLimit bounds the ranked app list in the dashboard view.
	TopAppLimit int
	// FirstFixWait bounds how long the location view stays in loading
	// before surfacing the awaiting-first-fix state.
	FirstFixWait time.Duration
	Logger       *log.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TrailLimit <= 0 {
		o.TrailLimit = 20
	}
	if o.TopAppLimit <= 0 {
		o.TopAppLimit = 10
	}
	if o.FirstFixWait <= 0 {
		o.FirstFixWait = 1500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = log.New(log.Writer(), "[engine] ", log.LstdFlags|log.Lshortfile)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type sourceState struct {
	loaded bool
	err    error
}

// Engine owns the reconciliation state for one child. All fields below
// dispatch are confined to the dispatch goroutine.
type Engine struct {
	childID string
	store   docstore.Store
	opts    Options
	logger  *log.Logger

	dispatch chan func()
	closed   chan struct{}
	done     chan struct{}

	closeOnce sync.Once

	mu          sync.Mutex
	cancels     []docstore.CancelFunc
	tornDown    bool
	firstFixTmr *time.Timer

	// Current-activity resolver.
	activity      *telemetry.Activity
	sessionState  sourceState
	embeddedState sourceState

	// Usage history.
	primaryDays  []telemetry.DayEntry
	historyState sourceState

	// Fallback over keyed daily documents, one cache per device alias.
	aliases      []string
	aliasWatched map[string]bool
	aliasDays    map[string][]telemetry.DayEntry
	aliasAggs    map[string]*telemetry.AggregateCandidate

	// Precomputed aggregate document.
	aggregate      *telemetry.UsageAggregate
	aggregateState sourceState

	// Location sources.
	pings         []telemetry.LocationPoint
	embeddedPoint *telemetry.LocationPoint
	pingState     sourceState
	embeddedFix   sourceState
	firstFixDue   bool

	// App inventory.
	apps      []telemetry.App
	appsState sourceState

	viewMu       sync.RWMutex
	view         View
	locationView LocationView
	appsView     AppsView
}

// New starts an engine for childID against the given store. The returned
// engine is already subscribed; call Close to detach.
func New(childID string, store docstore.Store, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		childID:      childID,
		store:        store,
		opts:         opts,
		logger:       opts.Logger,
		dispatch:     make(chan func(), 64),
		closed:       make(chan struct{}),
		done:         make(chan struct{}),
		aliasWatched: make(map[string]bool),
		aliasDays:    make(map[string][]telemetry.DayEntry),
		aliasAggs:    make(map[string]*telemetry.AggregateCandidate),
	}
	e.view = emptyView()
	e.locationView = LocationView{Loading: true}
	e.appsView = AppsView{Loading: true}

	go e.run()
	e.attachSources()
	e.armFirstFixTimer()
	enginesActive.Inc()
	return e
}

// ChildID identifies the child this engine reconciles.
func (e *Engine) ChildID() string { return e.childID }

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.dispatch:
			fn()
			e.publish()
		case <-e.closed:
			return
		}
	}
}

// post hands fn to the dispatch goroutine. Posts after Close are dropped.
func (e *Engine) post(fn func()) {
	select {
	case e.dispatch <- fn:
	case <-e.closed:
	}
}

func (e *Engine) addCancel(cancel docstore.CancelFunc) {
	e.mu.Lock()
	if e.tornDown {
		e.mu.Unlock()
		cancel()
		return
	}
	e.cancels = append(e.cancels, cancel)
	e.mu.Unlock()
}

func (e *Engine) armFirstFixTimer() {
	timer := time.AfterFunc(e.opts.FirstFixWait, func() {
		e.post(func() { e.firstFixDue = true })
	})
	e.mu.Lock()
	if e.tornDown {
		e.mu.Unlock()
		timer.Stop()
		return
	}
	e.firstFixTmr = timer
	e.mu.Unlock()
}

// Close detaches every subscription and stops the dispatch goroutine. No
// callback runs after Close returns.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.tornDown = true
		cancels := e.cancels
		e.cancels = nil
		timer := e.firstFixTmr
		e.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		close(e.closed)
		for _, cancel := range cancels {
			cancel()
		}
		<-e.done
		enginesActive.Dec()
	})
}

func (e *Engine) dropRecord(source, docID string, err error) {
	recordDropped(source)
	if err != nil {
		e.logger.Printf("dropped record (child=%s, source=%s, doc=%s): %v", e.childID, source, docID, err)
		return
	}
	e.logger.Printf("dropped record (child=%s, source=%s, doc=%s)", e.childID, source, docID)
}

func (e *Engine) sourceError(source string, err error) {
	recordSubscriptionError(source)
	e.logger.Printf("subscription error (child=%s, source=%s): %v", e.childID, source, err)
}
