// Package ingest provides an optional asynchronous document-ingestion path
// on top of the synchronous addDocument surface operation. It is grounded
// on the teacher platform's internal/ingestion/publisher and pkg/kafka
// consumer loop, stripped of content-hash shard assignment and the
// idempotency-key Postgres table (distributed sharding is an explicit
// spec Non-goal; nothing downstream needs it once there is only one
// in-process cascade).
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cascade"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/kafka"
)

// wireDocument is the JSON shape carried on the Kafka topic: document.Value
// is not itself JSON-tagged, so the wire event uses a plain map for
// metadata and reconstructs the tagged tree on decode.
type wireDocument struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	URL       string         `json:"url,omitempty"`
	Category  string         `json:"category,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Publisher publishes documents to the ingest topic for asynchronous
// addition to the cascade.
type Publisher struct {
	producer *kafka.Producer
}

// NewPublisher wraps a kafka.Producer bound to the ingest topic.
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish enqueues doc for asynchronous ingestion.
func (p *Publisher) Publish(ctx context.Context, doc document.Document) error {
	return p.producer.Publish(ctx, kafka.Event{
		Key:   doc.ID,
		Value: toWire(doc),
	})
}

// Consumer decodes documents from the ingest topic and adds them to a
// cascade.Service. Store is optional: when set, successfully ingested
// documents are also persisted for warm-start replay.
type Consumer struct {
	service *cascade.Service
	store   *store.DocumentStore
	logger  *slog.Logger
}

// NewConsumer wires a cascade.Service to receive documents consumed from
// Kafka. docStore may be nil to disable warm-start persistence.
func NewConsumer(service *cascade.Service, docStore *store.DocumentStore) *Consumer {
	return &Consumer{service: service, store: docStore, logger: slog.Default().With("component", "ingest-consumer")}
}

// Handle is a kafka.MessageHandler that decodes one wire document and adds
// it to the cascade.
func (c *Consumer) Handle(ctx context.Context, key []byte, value []byte) error {
	wire, err := kafka.DecodeJSON[wireDocument](value)
	if err != nil {
		return fmt.Errorf("decoding ingest event: %w", err)
	}
	doc := fromWire(wire)
	if err := c.service.AddDocument(ctx, doc); err != nil {
		c.logger.Error("failed to add ingested document", "doc_id", doc.ID, "error", err)
		return err
	}
	if c.store != nil {
		if err := c.store.Upsert(ctx, doc); err != nil {
			c.logger.Error("ingested document not persisted", "doc_id", doc.ID, "error", err)
		}
	}
	c.logger.Info("document ingested asynchronously", "doc_id", doc.ID)
	return nil
}

func toWire(doc document.Document) wireDocument {
	return wireDocument{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		URL:       doc.URL,
		Category:  doc.Category,
		Tags:      doc.Tags,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Metadata:  valueToMap(doc.Metadata),
	}
}

func fromWire(w wireDocument) document.Document {
	return document.Document{
		ID:        w.ID,
		Title:     w.Title,
		Content:   w.Content,
		URL:       w.URL,
		Category:  w.Category,
		Tags:      w.Tags,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		Metadata:  mapToValue(w.Metadata),
	}
}

func valueToMap(v document.Value) map[string]any {
	if v.Kind != document.KindMap {
		return nil
	}
	out := make(map[string]any, len(v.Map))
	for k, item := range v.Map {
		out[k] = anyFromValue(item)
	}
	return out
}

func anyFromValue(v document.Value) any {
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
			out[i] = anyFromValue(item)
		}
		return out
	case document.KindMap:
		return valueToMap(v)
	default:
		return nil
	}
}

func mapToValue(m map[string]any) document.Value {
	if m == nil {
		return document.Null
	}
	out := make(map[string]document.Value, len(m))
	for k, v := range m {
		out[k] = valueFromAny(v)
	}
	return document.Map(out)
}

func valueFromAny(raw any) document.Value {
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
			items[i] = valueFromAny(item)
		}
		return document.List(items...)
	case map[string]any:
		return mapToValue(v)
	default:
		return document.Null
	}
}
