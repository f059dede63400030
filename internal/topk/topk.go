// Package topk provides the shared truncate-and-sort step used by Stage-2,
// Stage-3, and Stage-4 of the retrieval cascade, generalized from the
// teacher platform's internal/searcher/merger shard-merge heap into a
// single reusable primitive instead of three separate sort.Slice-then-slice
// call sites.
package topk

import "sort"

// Select returns the k highest-scoring items from items, in descending
// score order. less breaks ties (e.g. ascending by id) so the result is
// deterministic across calls with the same input.
func Select[T any](items []T, k int, score func(T) float64, less func(a, b T) bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := score(out[i]), score(out[j])
		if si != sj {
			return si > sj
		}
		return less(out[i], out[j])
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
