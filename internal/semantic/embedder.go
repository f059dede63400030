// Package semantic implements Stage-3 of the retrieval cascade: a dense-
// vector re-ranker that embeds text, stores unit vectors per document, and
// fuses BM25 with cosine similarity. No teacher component covers embedding
// directly; the Embedder interface shape and its deterministic default
// implementation are grounded on poiesic-memorit's ai/mock.MockEmbedder
// (FNV-hash-based unit vectors, no network dependency), and the
// VectorStore-shaped storage on the other_examples VectorStore/Reranker
// interfaces retrieved for this spec. The at-most-once, concurrent-waiters
// load semantics use golang.org/x/sync/singleflight — already a teacher
// dependency (its query-cache stampede guard) — instead of a hand-rolled
// mutex/channel. Every call into the underlying Embedder is bounded by
// resilience.WithTimeout, since a real model-backed Embedder talks to a
// network service and a stalled call would otherwise hang this stage and
// every singleflight waiter behind it.
package semantic

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

// defaultEmbedTimeout bounds a single call into the underlying Embedder. A
// real model-backed Embedder talks to a network service; without a bound a
// stalled call would hang Stage-3 (and everything waiting behind
// singleflight) indefinitely.
const defaultEmbedTimeout = 5 * time.Second

// Embedder maps text to a fixed-dimensional unit vector. The spec treats
// the real model as an external collaborator; only this interface is core.
type Embedder interface {
	Load(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is the default, dependency-free Embedder: a deterministic
// FNV-hash-based unit vector generator. It stands in for the external
// text-to-embedding model the spec specifies only by interface.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a HashEmbedder that produces vectors of the given
// dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{dimension: dimension}
}

// Load is a no-op for HashEmbedder; it never fails.
func (h *HashEmbedder) Load(ctx context.Context) error { return nil }

// Embed deterministically derives a unit vector from text via an FNV hash
// seeding a linear congruential generator, then normalizes it.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(text))
	seed := hasher.Sum32()

	vec := make([]float32, h.dimension)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000.0 - 0.5
	}
	normalize(vec)
	return vec, nil
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] *= norm
	}
}

// Provider wraps an Embedder with the cascade's load → ready lifecycle:
// calls made before ready trigger a load, and concurrent callers made
// during that load all wait on the same in-flight attempt.
type Provider struct {
	embedder Embedder
	group    singleflight.Group
	ready    atomic.Bool
	timeout  time.Duration
}

// NewProvider wraps embedder in a load-once Provider.
func NewProvider(embedder Embedder) *Provider {
	return &Provider{embedder: embedder, timeout: defaultEmbedTimeout}
}

// EnsureReady loads the embedder at most once; concurrent callers observe
// a single in-flight load via singleflight.
func (p *Provider) EnsureReady(ctx context.Context) error {
	if p.ready.Load() {
		return nil
	}
	_, err, _ := p.group.Do("load", func() (any, error) {
		if p.ready.Load() {
			return nil, nil
		}
		err := resilience.WithTimeout(ctx, p.timeout, "semantic-embedder-load", p.embedder.Load)
		if err != nil {
			return nil, apperrors.NewLayerError("semantic", err)
		}
		p.ready.Store(true)
		return nil, nil
	})
	return err
}

// Ready reports whether the embedder has completed its load.
func (p *Provider) Ready() bool { return p.ready.Load() }

// Embed ensures the provider is ready, then delegates to the underlying
// Embedder within a bounded timeout.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.EnsureReady(ctx); err != nil {
		return nil, err
	}
	var vec []float32
	err := resilience.WithTimeout(ctx, p.timeout, "semantic-embed", func(ctx context.Context) error {
		v, err := p.embedder.Embed(ctx, text)
		vec = v
		return err
	})
	if err != nil {
		return nil, apperrors.NewLayerError("semantic", err)
	}
	return vec, nil
}
