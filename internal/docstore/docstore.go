// Package docstore defines the document store abstraction the telemetry
// engine subscribes to. The store is modelled after the remote real-time
// document database the device agents write into: collections of untyped
// records, whole-collection snapshot subscriptions, single-document
// subscriptions, and range queries over document identifiers.
//
// Records delivered by the store have no guaranteed shape. Consumers treat
// them as transient and never retain one beyond a single normalization pass.
package docstore

import "context"

// RawRecord is the untyped payload of one document as delivered by a
// producer.
type RawRecord map[string]any

// Document pairs a document identifier with its raw payload.
type Document struct {
	ID   string
	Data RawRecord
}

type (
	// SnapshotFunc receives a full snapshot of a collection or range watch.
	SnapshotFunc func(docs []Document)
	// DocumentFunc receives the current state of a single watched document.
	DocumentFunc func(data RawRecord, exists bool)
	// ErrorFunc receives subscription failures. The subscription stays
	// registered; a later successful snapshot resumes normal delivery.
	ErrorFunc func(err error)
	// CancelFunc detaches a subscription. It blocks until the subscription's
	// delivery loop has stopped, so no callback runs after it returns.
	CancelFunc func()
)

// Store is the read side of the document store.
//
// All Watch methods deliver the current state immediately on subscribe and
// again after every change. Delivery order is guaranteed per subscription;
// nothing is guaranteed across subscriptions.
type Store interface {
	// Get performs a one-shot read of a single document.
	Get(ctx context.Context, collection, docID string) (RawRecord, bool, error)
	// WatchCollection subscribes to whole-collection snapshots.
	WatchCollection(collection string, fn SnapshotFunc, errFn ErrorFunc) CancelFunc
	// WatchDocument subscribes to a single document.
	WatchDocument(collection, docID string, fn DocumentFunc, errFn ErrorFunc) CancelFunc
	// WatchRange subscribes to the documents whose identifiers fall in
	// [startID, endID).
	WatchRange(collection, startID, endID string, fn SnapshotFunc, errFn ErrorFunc) CancelFunc
}

// Writer is the mutation side, used by the ingest pipeline. The telemetry
// engine itself never writes.
type Writer interface {
	Set(ctx context.Context, collection, docID string, data RawRecord) error
	Delete(ctx context.Context, collection, docID string) error
}
