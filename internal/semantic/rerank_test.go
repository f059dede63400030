package semantic

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/relevance"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
)

func newTestReranker() *Reranker {
	provider := NewProvider(NewHashEmbedder(32))
	return NewReranker(provider, NewVectorStore())
}

func TestRerankFusesScoresWithinBounds(t *testing.T) {
	ctx := context.Background()
	r := newTestReranker()

	docs := []document.Document{
		{ID: "d1", Title: "Machine Learning", Content: "algorithms that learn from data"},
		{ID: "d2", Title: "Deep Learning", Content: "neural networks with layers"},
	}
	for _, d := range docs {
		if err := r.AddDocument(ctx, d); err != nil {
			t.Fatalf("AddDocument(%s): %v", d.ID, err)
		}
	}

	stage2 := []relevance.Result{
		{ID: "d1", Title: "Machine Learning", Score: 1.5},
		{ID: "d2", Title: "Deep Learning", Score: 0.8},
	}

	results, err := r.Rerank(ctx, stage2, "neural networks", 10)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		want := fusionBM25Weight*res.Score + fusionCosineWeight*res.Similarity
		if res.FinalScore != want {
			t.Fatalf("FinalScore mismatch for %s: got %v, want %v", res.ID, res.FinalScore, want)
		}
		if res.Similarity < -1.0001 || res.Similarity > 1.0001 {
			t.Fatalf("similarity out of cosine range: %v", res.Similarity)
		}
	}
}

func TestRerankMissingVectorTreatedAsZeroSimilarity(t *testing.T) {
	ctx := context.Background()
	r := newTestReranker()

	stage2 := []relevance.Result{{ID: "ghost", Title: "unseen", Score: 1.0}}
	results, err := r.Rerank(ctx, stage2, "query text", 10)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Similarity != 0 {
		t.Fatalf("expected similarity 0 for undstored document, got %v", results[0].Similarity)
	}
	if results[0].FinalScore != fusionBM25Weight*1.0 {
		t.Fatalf("expected final score to come entirely from bm25, got %v", results[0].FinalScore)
	}
}

func TestRerankCapEnforced(t *testing.T) {
	ctx := context.Background()
	r := newTestReranker()

	stage2 := make([]relevance.Result, 0, 20)
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		doc := document.Document{ID: id, Title: "doc", Content: "sample content number " + id}
		if err := r.AddDocument(ctx, doc); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
		stage2 = append(stage2, relevance.Result{ID: id, Score: float64(i)})
	}

	results, err := r.Rerank(ctx, stage2, "sample", 5)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected cap of 5 results, got %d", len(results))
	}
}

func TestFindSimilarExcludesSelfAndErrorsOnUnknown(t *testing.T) {
	ctx := context.Background()
	r := newTestReranker()

	docs := []document.Document{
		{ID: "d1", Title: "cats", Content: "cats are great pets"},
		{ID: "d2", Title: "dogs", Content: "dogs are loyal pets"},
		{ID: "d3", Title: "cars", Content: "cars need fuel"},
	}
	for _, d := range docs {
		if err := r.AddDocument(ctx, d); err != nil {
			t.Fatalf("AddDocument(%s): %v", d.ID, err)
		}
	}

	results, err := r.FindSimilar("d1", 10)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	for _, res := range results {
		if res.ID == "d1" {
			t.Fatalf("FindSimilar must exclude the source document, got it in results")
		}
	}

	_, err = r.FindSimilar("missing", 10)
	if err == nil {
		t.Fatalf("expected error for unknown id")
	}
	var layerErr *apperrors.LayerError
	if !asLayerError(err, &layerErr) {
		t.Fatalf("expected a LayerError for an unknown id, got %T: %v", err, err)
	}
	if apperrors.HTTPStatusCode(err) == 404 {
		t.Fatalf("findSimilar on an unknown id must not be reported as NotFoundError/404, that status is reserved for removeDocument")
	}
}

func TestVectorStoreDimensionMismatchRaisesLayerError(t *testing.T) {
	store := NewVectorStore()
	if err := store.Upsert("a", make([]float32, 8), MetadataSnapshot{}); err != nil {
		t.Fatalf("first Upsert should establish dimension: %v", err)
	}
	err := store.Upsert("b", make([]float32, 4), MetadataSnapshot{})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	var layerErr *apperrors.LayerError
	if !asLayerError(err, &layerErr) {
		t.Fatalf("expected a LayerError, got %T: %v", err, err)
	}
}

func asLayerError(err error, target **apperrors.LayerError) bool {
	le, ok := err.(*apperrors.LayerError)
	if !ok {
		return false
	}
	*target = le
	return true
}

func TestSemanticSearchRanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	r := newTestReranker()

	docs := []document.Document{
		// AddDocument embeds Title+" "+Content, so this is exactly the query.
		{ID: "d1", Title: "exact", Content: "match text"},
		{ID: "d2", Title: "unrelated", Content: "completely different subject matter"},
	}
	for _, d := range docs {
		if err := r.AddDocument(ctx, d); err != nil {
			t.Fatalf("AddDocument(%s): %v", d.ID, err)
		}
	}

	results, err := r.SemanticSearch(ctx, "exact match text", 10)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "d1" {
		t.Fatalf("expected d1 (identical text) to rank first, got %s", results[0].ID)
	}
}
