package semantic

import (
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
)

// SimilarityResult is one hit from a pure vector-space search, returned by
// SemanticSearch and FindSimilar rather than the fused Rerank path.
type SimilarityResult struct {
	ID         string
	Similarity float64
}

// MetadataSnapshot is the title/category/createdAt/metadata captured
// alongside a document's vector, so Stage-3 never needs to look the full
// document back up in Stage-1 or Stage-2.
type MetadataSnapshot struct {
	Title     string
	Category  string
	CreatedAt time.Time
	Metadata  document.Value
}

type vectorEntry struct {
	vector   []float32
	snapshot MetadataSnapshot
}

// VectorStore holds one unit vector per document id, grounded on the
// Upsert/Search/DeleteByDoc shape of the retrieved VectorStore/Reranker
// interfaces: a minimal in-memory index keyed by document id, with a fixed
// dimension enforced across every stored vector.
type VectorStore struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]vectorEntry
}

// NewVectorStore creates an empty store. dimension is fixed by the first
// Upsert and enforced on every subsequent one.
func NewVectorStore() *VectorStore {
	return &VectorStore{entries: make(map[string]vectorEntry)}
}

// Upsert stores vec and its metadata snapshot under id, replacing any
// prior entry for id. It raises a LayerError if vec's length disagrees
// with the dimension established by an earlier Upsert.
func (v *VectorStore) Upsert(id string, vec []float32, snapshot MetadataSnapshot) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dimension == 0 {
		v.dimension = len(vec)
	} else if len(vec) != v.dimension {
		return apperrors.NewLayerError("semantic",
			apperrors.NewValidationError("vector", "embedding dimension mismatch"))
	}
	v.entries[id] = vectorEntry{vector: vec, snapshot: snapshot}
	return nil
}

// Snapshot returns id's stored metadata snapshot and whether it was found.
func (v *VectorStore) Snapshot(id string) (MetadataSnapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[id]
	return e.snapshot, ok
}

// Delete removes id's vector, if present.
func (v *VectorStore) Delete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.entries, id)
}

// Get returns id's stored vector and whether it was found.
func (v *VectorStore) Get(id string) ([]float32, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[id]
	return e.vector, ok
}

// Len returns the number of stored vectors.
func (v *VectorStore) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Search returns the top-k ids by cosine similarity to query, excluding
// excludeID if non-empty. Ties are broken by ascending id for determinism.
func (v *VectorStore) Search(query []float32, k int, excludeID string) []SimilarityResult {
	v.mu.RLock()
	defer v.mu.RUnlock()

	results := make([]SimilarityResult, 0, len(v.entries))
	for id, e := range v.entries {
		if id == excludeID {
			continue
		}
		results = append(results, SimilarityResult{ID: id, Similarity: cosineSimilarity(query, e.vector)})
	}
	return topKSimilarity(results, k)
}
