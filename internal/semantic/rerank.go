package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/topk"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
)

// fusionBM25Weight and fusionCosineWeight are the spec's fixed score-fusion
// weights: finalScore = 0.6*bm25 + 0.4*cosine.
const (
	fusionBM25Weight   = 0.6
	fusionCosineWeight = 0.4
)

// Result is one Stage-3 hit: a Stage-2 result plus its cosine similarity
// and the fused final score.
type Result struct {
	relevance.Result
	Similarity float64
	FinalScore float64
}

// Reranker is Stage-3 of the cascade: it holds the embedding Provider and
// the VectorStore of per-document vectors, and fuses Stage-2's BM25 scores
// with cosine similarity against the query embedding.
type Reranker struct {
	provider *Provider
	store    *VectorStore
}

// NewReranker wires an embedding Provider to a VectorStore.
func NewReranker(provider *Provider, store *VectorStore) *Reranker {
	return &Reranker{provider: provider, store: store}
}

// AddDocument embeds doc's title and content and stores the resulting
// vector, together with a metadata snapshot, under doc.ID.
func (r *Reranker) AddDocument(ctx context.Context, doc document.Document) error {
	vec, err := r.provider.Embed(ctx, doc.Title+" "+doc.Content)
	if err != nil {
		return err
	}
	snapshot := MetadataSnapshot{
		Title:     doc.Title,
		Category:  doc.Category,
		CreatedAt: doc.CreatedAt,
		Metadata:  doc.Metadata,
	}
	return r.store.Upsert(doc.ID, vec, snapshot)
}

// RemoveDocument drops id's stored vector, if any.
func (r *Reranker) RemoveDocument(id string) {
	r.store.Delete(id)
}

// Ready reports whether the embedding provider has finished loading.
func (r *Reranker) Ready() bool { return r.provider.Ready() }

// VectorCount returns the number of documents with a stored vector.
func (r *Reranker) VectorCount() int { return r.store.Len() }

// Rerank embeds query once, looks up each Stage-2 candidate's stored
// vector (treating a missing vector as similarity 0), fuses
// 0.6*bm25 + 0.4*cosine, and returns the top maxResults by final score.
func (r *Reranker) Rerank(ctx context.Context, stage2 []relevance.Result, query string, maxResults int) ([]Result, error) {
	queryVec, err := r.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(stage2))
	for _, base := range stage2 {
		var sim float64
		if vec, ok := r.store.Get(base.ID); ok {
			sim = cosineSimilarity(queryVec, vec)
		}
		results = append(results, Result{
			Result:     base,
			Similarity: sim,
			FinalScore: fusionBM25Weight*base.Score + fusionCosineWeight*sim,
		})
	}

	return topk.Select(results, maxResults,
		func(r Result) float64 { return r.FinalScore },
		func(a, b Result) bool { return a.ID < b.ID },
	), nil
}

// SemanticSearch embeds query and ranks the entire corpus by cosine
// similarity alone, independent of any Stage-1/Stage-2 candidate set.
func (r *Reranker) SemanticSearch(ctx context.Context, query string, limit int) ([]SimilarityResult, error) {
	queryVec, err := r.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.Search(queryVec, limit, ""), nil
}

// FindSimilar returns the limit documents whose stored vectors are most
// cosine-similar to id's, excluding id itself. Unlike removeDocument on an
// unknown id (NotFoundError, 404), an unknown id here is treated as client
// misuse of the similarity endpoint and reported as a LayerError.
func (r *Reranker) FindSimilar(id string, limit int) ([]SimilarityResult, error) {
	vec, ok := r.store.Get(id)
	if !ok {
		return nil, apperrors.NewLayerError("semantic", fmt.Errorf("document %q has no stored vector", id))
	}
	return r.store.Search(vec, limit, id), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func topKSimilarity(results []SimilarityResult, k int) []SimilarityResult {
	return topk.Select(results, k,
		func(r SimilarityResult) float64 { return r.Similarity },
		func(a, b SimilarityResult) bool { return a.ID < b.ID },
	)
}
