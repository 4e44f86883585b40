package docstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process document store used by unit tests and local
// development. It implements both Store and Writer.
type Memory struct {
	*Hub

	mu   sync.RWMutex
	data map[string]map[string]RawRecord
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		data: make(map[string]map[string]RawRecord),
	}
	m.Hub = NewHub(Loaders{
		Collection: m.listCollection,
		Range:      m.listRange,
		Document:   m.getDocument,
	})
	return m
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, collection, docID string) (RawRecord, bool, error) {
	return m.getDocument(collection, docID)
}

// Set implements Writer. Subscribers matching the document are re-delivered
// after the write.
func (m *Memory) Set(ctx context.Context, collection, docID string, data RawRecord) error {
	m.mu.Lock()
	col, ok := m.data[collection]
	if !ok {
		col = make(map[string]RawRecord)
		m.data[collection] = col
	}
	col[docID] = cloneRecord(data)
	m.mu.Unlock()

	m.Broadcast(collection, docID)
	return nil
}

// Delete implements Writer.
func (m *Memory) Delete(ctx context.Context, collection, docID string) error {
	m.mu.Lock()
	if col, ok := m.data[collection]; ok {
		delete(col, docID)
	}
	m.mu.Unlock()

	m.Broadcast(collection, docID)
	return nil
}

func (m *Memory) getDocument(collection, docID string) (RawRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.data[collection]
	if !ok {
		return nil, false, nil
	}
	data, ok := col[docID]
	if !ok {
		return nil, false, nil
	}
	return cloneRecord(data), true, nil
}

func (m *Memory) listCollection(collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(collection, func(string) bool { return true }), nil
}

func (m *Memory) listRange(collection, startID, endID string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(collection, func(id string) bool {
		return id >= startID && id < endID
	}), nil
}

// snapshot is called with m.mu held. Documents are returned sorted by ID so
// deliveries are deterministic.
func (m *Memory) snapshot(collection string, keep func(id string) bool) []Document {
	col := m.data[collection]
	docs := make([]Document, 0, len(col))
	for id, data := range col {
		if keep(id) {
			docs = append(docs, Document{ID: id, Data: cloneRecord(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func cloneRecord(data RawRecord) RawRecord {
	if data == nil {
		return nil
	}
	out := make(RawRecord, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
