// Package store provides optional warm-start persistence for the cascade's
// document corpus. The core requires no durability (spec §6: "None
// required by the core... an implementation may add durable storage, but
// must preserve the behavior above on warm-start"); this package is that
// optional addition, grounded on the teacher platform's pkg/postgres
// client and its InTx transaction helper.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/resilience"
)

// DocumentStore persists documents to PostgreSQL as a best-effort warm-start
// cache: writes happen alongside AddDocument/RemoveDocument, and LoadAll
// replays them into a fresh in-process cascade on startup. A write failure
// here never fails the caller's add/remove — persistence is an optimization,
// not a correctness requirement, per the core's in-process-only contract. A
// circuit breaker guards every query so a struggling Postgres degrades to
// fast failures instead of piling up blocked connections.
type DocumentStore struct {
	db      *postgres.Client
	cb      *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

// New wraps a postgres.Client for document warm-start persistence. m may be
// nil to skip circuit-breaker-state reporting.
func New(db *postgres.Client, m *metrics.Metrics) *DocumentStore {
	return &DocumentStore{
		db:      db,
		cb:      resilience.NewCircuitBreaker("postgres-store", resilience.CircuitBreakerConfig{}),
		metrics: m,
	}
}

func (s *DocumentStore) reportBreakerState() {
	if s.metrics != nil {
		s.metrics.CircuitBreakerState.WithLabelValues("postgres-store").Set(float64(s.cb.GetState()))
	}
}

// EnsureSchema creates the documents table if it does not already exist.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	err := s.cb.Execute(func() error {
		_, err := s.db.DB.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS documents (
				id          TEXT PRIMARY KEY,
				title       TEXT NOT NULL,
				content     TEXT NOT NULL,
				url         TEXT,
				category    TEXT,
				tags        JSONB,
				metadata    JSONB,
				created_at  TIMESTAMPTZ NOT NULL,
				updated_at  TIMESTAMPTZ NOT NULL
			)
		`)
		return err
	})
	s.reportBreakerState()
	if err != nil {
		return fmt.Errorf("ensuring documents schema: %w", err)
	}
	return nil
}

// Upsert writes doc to the store, replacing any prior row with the same id.
func (s *DocumentStore) Upsert(ctx context.Context, doc document.Document) error {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}
	metadata, err := json.Marshal(valueToAny(doc.Metadata))
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	err = s.cb.Execute(func() error {
		_, err := s.db.DB.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, url, category, tags, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, content = EXCLUDED.content, url = EXCLUDED.url,
				category = EXCLUDED.category, tags = EXCLUDED.tags, metadata = EXCLUDED.metadata,
				updated_at = EXCLUDED.updated_at
		`, doc.ID, doc.Title, doc.Content, doc.URL, doc.Category, tags, metadata, doc.CreatedAt, doc.UpdatedAt)
		return err
	})
	s.reportBreakerState()
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

// Delete removes id's row, if present.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	err := s.cb.Execute(func() error {
		_, err := s.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
		return err
	})
	s.reportBreakerState()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// LoadAll returns every persisted document, for replaying into a fresh
// cascade Service on process startup.
func (s *DocumentStore) LoadAll(ctx context.Context) ([]document.Document, error) {
	var rows *sql.Rows
	err := s.cb.Execute(func() error {
		r, err := s.db.DB.QueryContext(ctx, `
			SELECT id, title, content, url, category, tags, metadata, created_at, updated_at FROM documents
		`)
		rows = r
		return err
	})
	s.reportBreakerState()
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var doc document.Document
		var url, category sql.NullString
		var tagsRaw, metadataRaw []byte
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &url, &category, &tagsRaw, &metadataRaw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.URL = url.String
		doc.Category = category.String
		if len(tagsRaw) > 0 {
			if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
				return nil, fmt.Errorf("unmarshaling tags for %s: %w", doc.ID, err)
			}
		}
		if len(metadataRaw) > 0 {
			var raw any
			if err := json.Unmarshal(metadataRaw, &raw); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %s: %w", doc.ID, err)
			}
			doc.Metadata = anyToValue(raw)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func valueToAny(v document.Value) any {
	switch v.Kind {
	case document.KindString:
		return v.Str
	case document.KindNumber:
		return v.Num
	case document.KindBool:
		return v.Bool
	case document.KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = valueToAny(item)
		}
		return out
	case document.KindMap:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			out[k] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}

func anyToValue(raw any) document.Value {
	switch v := raw.(type) {
	case string:
		return document.String(v)
	case float64:
		return document.Number(v)
	case bool:
		return document.Bool(v)
	case []any:
		items := make([]document.Value, len(v))
		for i, item := range v {
			items[i] = anyToValue(item)
		}
		return document.List(items...)
	case map[string]any:
		out := make(map[string]document.Value, len(v))
		for k, item := range v {
			out[k] = anyToValue(item)
		}
		return document.Map(out)
	default:
		return document.Null
	}
}
