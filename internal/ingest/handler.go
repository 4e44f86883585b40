package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/observability"
)

// Event types carried on the device update topics.
const (
	EventDocumentSet     = "document.set"
	EventDocumentDeleted = "document.deleted"
)

// DocumentUpdate is the payload of a document.set or document.deleted event.
type DocumentUpdate struct {
	Collection string             `json:"collection"`
	DocID      string             `json:"doc_id"`
	Data       docstore.RawRecord `json:"data,omitempty"`
	Deleted    bool               `json:"deleted,omitempty"`
	ObservedAt string             `json:"observed_at,omitempty"`
}

// StoreHandler applies decoded document updates to the document store.
type StoreHandler struct {
	writer docstore.Writer
}

// NewStoreHandler builds a handler writing into the given store.
func NewStoreHandler(writer docstore.Writer) *StoreHandler {
	return &StoreHandler{writer: writer}
}

// Handle applies one update. Updates without a document identifier get a
// generated one, which is how new location pings arrive.
func (h *StoreHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case EventDocumentSet, EventDocumentDeleted:
	default:
		return fmt.Errorf("unknown event type %q", msg.EventType)
	}

	var update DocumentUpdate
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		return fmt.Errorf("decode document update: %w", err)
	}
	if update.Collection == "" {
		return fmt.Errorf("document update missing collection")
	}

	if msg.EventType == EventDocumentDeleted || update.Deleted {
		if update.DocID == "" {
			return fmt.Errorf("document delete missing doc_id")
		}
		return h.writer.Delete(ctx, update.Collection, update.DocID)
	}

	docID := update.DocID
	if docID == "" {
		docID = uuid.NewString()
	}
	if err := h.writer.Set(ctx, update.Collection, docID, update.Data); err != nil {
		return err
	}
	observability.RecordDocumentApplied(msg.Timestamp)
	return nil
}
