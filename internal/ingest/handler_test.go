package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
)

func TestStoreHandlerAppliesSet(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	handler := NewStoreHandler(store)

	err := handler.Handle(ctx, Message{
		EventType: EventDocumentSet,
		Payload:   json.RawMessage(`{"collection":"children","doc_id":"child-1","data":{"name":"Ada"}}`),
	})
	require.NoError(t, err)

	rec, exists, err := store.Get(ctx, "children", "child-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "Ada", rec["name"])
}

func TestStoreHandlerGeneratesMissingDocID(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	handler := NewStoreHandler(store)

	err := handler.Handle(ctx, Message{
		EventType: EventDocumentSet,
		Payload:   json.RawMessage(`{"collection":"children/child-1/locations","data":{"latitude":37.0,"longitude":-122.0}}`),
	})
	require.NoError(t, err)
}

func TestStoreHandlerAppliesDelete(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.Set(ctx, "children", "child-1", docstore.RawRecord{}))

	handler := NewStoreHandler(store)
	err := handler.Handle(ctx, Message{
		EventType: EventDocumentDeleted,
		Payload:   json.RawMessage(`{"collection":"children","doc_id":"child-1"}`),
	})
	require.NoError(t, err)

	_, exists, err := store.Get(ctx, "children", "child-1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestStoreHandlerRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	handler := NewStoreHandler(docstore.NewMemory())

	err := handler.Handle(ctx, Message{EventType: "document.unknown"})
	require.Error(t, err)

	err = handler.Handle(ctx, Message{
		EventType: EventDocumentSet,
		Payload:   json.RawMessage(`not json`),
	})
	require.Error(t, err)

	err = handler.Handle(ctx, Message{
		EventType: EventDocumentSet,
		Payload:   json.RawMessage(`{"doc_id":"child-1"}`),
	})
	require.Error(t, err)

	err = handler.Handle(ctx, Message{
		EventType: EventDocumentDeleted,
		Payload:   json.RawMessage(`{"collection":"children"}`),
	})
	require.Error(t, err)
}
