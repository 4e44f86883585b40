package docstore

import "sync"

type watchKind int

const (
	watchCollection watchKind = iota
	watchDocument
	watchRange
)

type subscription struct {
	id         int
	kind       watchKind
	collection string
	docID      string
	startID    string
	endID      string

	snapFn SnapshotFunc
	docFn  DocumentFunc
	errFn  ErrorFunc

	queue chan func()
	stop  chan struct{}
	done  chan struct{}
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.queue:
			fn()
		case <-s.stop:
			return
		}
	}
}

func (s *subscription) enqueue(fn func()) {
	select {
	case s.queue <- fn:
	case <-s.stop:
	}
}

func (s *subscription) matches(collection, docID string) bool {
	if collection != s.collection {
		return false
	}
	switch s.kind {
	case watchDocument:
		return docID == s.docID
	case watchRange:
		return docID >= s.startID && docID < s.endID
	default:
		return true
	}
}

// Loaders supplies the snapshot reads a Hub needs when it (re)delivers to a
// subscription. Backends plug in their own storage here.
type Loaders struct {
	Collection func(collection string) ([]Document, error)
	Range      func(collection, startID, endID string) ([]Document, error)
	Document   func(collection, docID string) (RawRecord, bool, error)
}

// Hub fans document change notifications out to registered subscriptions.
// Each subscription gets its own delivery goroutine, so delivery is ordered
// per subscription and slow consumers never block each other.
type Hub struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]*subscription
	loaders Loaders
}

// NewHub constructs a Hub over the given snapshot loaders.
func NewHub(loaders Loaders) *Hub {
	return &Hub{
		subs:    make(map[int]*subscription),
		loaders: loaders,
	}
}

// WatchCollection implements Store.
func (h *Hub) WatchCollection(collection string, fn SnapshotFunc, errFn ErrorFunc) CancelFunc {
	return h.add(&subscription{
		kind:       watchCollection,
		collection: collection,
		snapFn:     fn,
		errFn:      errFn,
	})
}

// WatchDocument implements Store.
func (h *Hub) WatchDocument(collection, docID string, fn DocumentFunc, errFn ErrorFunc) CancelFunc {
	return h.add(&subscription{
		kind:       watchDocument,
		collection: collection,
		docID:      docID,
		docFn:      fn,
		errFn:      errFn,
	})
}

// WatchRange implements Store.
func (h *Hub) WatchRange(collection, startID, endID string, fn SnapshotFunc, errFn ErrorFunc) CancelFunc {
	return h.add(&subscription{
		kind:       watchRange,
		collection: collection,
		startID:    startID,
		endID:      endID,
		snapFn:     fn,
		errFn:      errFn,
	})
}

func (h *Hub) add(sub *subscription) CancelFunc {
	sub.queue = make(chan func(), 16)
	sub.stop = make(chan struct{})
	sub.done = make(chan struct{})

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()

	go sub.run()
	h.deliver(sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub.id)
			h.mu.Unlock()
			close(sub.stop)
			<-sub.done
		})
	}
}

// Broadcast re-delivers current snapshots to every subscription matching the
// changed document.
func (h *Hub) Broadcast(collection, docID string) {
	for _, sub := range h.matching(collection, docID) {
		h.deliver(sub)
	}
}

// InjectError pushes a subscription failure to every subscription matching
// the given document. Used by tests and by backends that detect a broken
// feed.
func (h *Hub) InjectError(collection, docID string, err error) {
	for _, sub := range h.matching(collection, docID) {
		if sub.errFn == nil {
			continue
		}
		fn := sub.errFn
		sub.enqueue(func() { fn(err) })
	}
}

func (h *Hub) matching(collection, docID string) []*subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	matched := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.matches(collection, docID) {
			matched = append(matched, sub)
		}
	}
	return matched
}

func (h *Hub) deliver(sub *subscription) {
	switch sub.kind {
	case watchDocument:
		data, exists, err := h.loaders.Document(sub.collection, sub.docID)
		if err != nil {
			h.deliverErr(sub, err)
			return
		}
		fn := sub.docFn
		sub.enqueue(func() { fn(data, exists) })
	case watchRange:
		docs, err := h.loaders.Range(sub.collection, sub.startID, sub.endID)
		if err != nil {
			h.deliverErr(sub, err)
			return
		}
		fn := sub.snapFn
		sub.enqueue(func() { fn(docs) })
	default:
		docs, err := h.loaders.Collection(sub.collection)
		if err != nil {
			h.deliverErr(sub, err)
			return
		}
		fn := sub.snapFn
		sub.enqueue(func() { fn(docs) })
	}
}

func (h *Hub) deliverErr(sub *subscription, err error) {
	if sub.errFn == nil {
		return
	}
	fn := sub.errFn
	sub.enqueue(func() { fn(err) })
}
