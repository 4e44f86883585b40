// Package postgres provides a Postgres-backed document store. Documents are
// rows of JSONB keyed by (collection, doc_id); change notifications come
// from the in-process broadcast that follows every write, which is enough
// because the ingest consumer and the engines share a process.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
)

// Store implements docstore.Store and docstore.Writer over Postgres.
type Store struct {
	*docstore.Hub
	pool *pgxpool.Pool
}

// NewStore constructs a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	s.Hub = docstore.NewHub(docstore.Loaders{
		Collection: s.listCollection,
		Range:      s.listRange,
		Document:   s.getDocument,
	})
	return s
}

// EnsureSchema creates the documents table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS documents (
        collection TEXT NOT NULL,
        doc_id     TEXT NOT NULL,
        data       JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (collection, doc_id)
    )`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

// Get performs a one-shot read of a single document.
func (s *Store) Get(ctx context.Context, collection, docID string) (docstore.RawRecord, bool, error) {
	const query = `SELECT data FROM documents WHERE collection=$1 AND doc_id=$2`

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, collection, docID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var record docstore.RawRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, false, fmt.Errorf("decode document %s/%s: %w", collection, docID, err)
	}
	return record, true, nil
}

// Set upserts a document and notifies watchers.
func (s *Store) Set(ctx context.Context, collection, docID string, data docstore.RawRecord) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, docID, err)
	}

	const query = `INSERT INTO documents (collection, doc_id, data, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (collection, doc_id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`
	if _, err := s.pool.Exec(ctx, query, collection, docID, payload); err != nil {
		return err
	}

	s.Broadcast(collection, docID)
	return nil
}

// Delete removes a document and notifies watchers.
func (s *Store) Delete(ctx context.Context, collection, docID string) error {
	const query = `DELETE FROM documents WHERE collection=$1 AND doc_id=$2`
	if _, err := s.pool.Exec(ctx, query, collection, docID); err != nil {
		return err
	}

	s.Broadcast(collection, docID)
	return nil
}

func (s *Store) getDocument(collection, docID string) (docstore.RawRecord, bool, error) {
	return s.Get(context.Background(), collection, docID)
}

func (s *Store) listCollection(collection string) ([]docstore.Document, error) {
	const query = `SELECT doc_id, data FROM documents WHERE collection=$1 ORDER BY doc_id`
	return s.list(query, collection)
}

func (s *Store) listRange(collection, startID, endID string) ([]docstore.Document, error) {
	const query = `SELECT doc_id, data FROM documents
        WHERE collection=$1 AND doc_id >= $2 AND doc_id < $3 ORDER BY doc_id`
	return s.list(query, collection, startID, endID)
}

func (s *Store) list(query string, args ...any) ([]docstore.Document, error) {
	rows, err := s.pool.Query(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			docID   string
			payload []byte
		)
		if err := rows.Scan(&docID, &payload); err != nil {
			return nil, err
		}
		var record docstore.RawRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", docID, err)
		}
		docs = append(docs, docstore.Document{ID: docID, Data: record})
	}
	return docs, rows.Err()
}
