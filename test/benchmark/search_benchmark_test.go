package benchmark

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/lexical"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/relevance"
)

// BenchmarkBooleanSearch measures the lexical index's boolean evaluator for
// queries of varying complexity.
func BenchmarkBooleanSearch(b *testing.B) {
	ix := lexical.New()
	for i := 0; i < 5000; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		title := fmt.Sprintf("document %d about search analytics platform", i)
		ix.AddDocument(benchDoc(docID, title, "search analytics platform with indexing and ranking"))
	}

	queries := []struct {
		name  string
		query string
		op    lexical.Operator
	}{
		{"and_two_terms", "search analytics", lexical.OpAND},
		{"or_two_terms", "indexing ranking", lexical.OpOR},
		{"not_single_term", "platform", lexical.OpNOT},
	}

	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results := ix.BooleanSearch(q.query, q.op)
				_ = results
			}
		})
	}
}

// BenchmarkBM25Score measures relevance scoring and sorting for candidate
// sets of increasing size.
func BenchmarkBM25Score(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			scorer := relevance.New()
			candidates := make([]string, numDocs)
			for i := 0; i < numDocs; i++ {
				docID := fmt.Sprintf("doc-%d", i)
				scorer.AddDocument(benchDoc(docID, "search analytics platform",
					"search engine analytics platform with distributed indexing and ranking"))
				candidates[i] = docID
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ranked := scorer.Score(candidates, "search analytics", relevance.BM25, 10)
				_ = ranked
			}
		})
	}
}

// BenchmarkBM25MultiTerm measures BM25 scoring latency as the query grows
// from one term to many.
func BenchmarkBM25MultiTerm(b *testing.B) {
	scorer := relevance.New()
	candidates := make([]string, 500)
	for i := 0; i < 500; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		scorer.AddDocument(benchDoc(docID, "term0 term1 term2 term3 term4",
			"term5 term6 term7 term8 term9 repeated for scoring benchmarks"))
		candidates[i] = docID
	}

	queries := []string{
		"term0",
		"term0 term1 term2",
		"term0 term1 term2 term3 term4",
		"term0 term1 term2 term3 term4 term5 term6 term7 term8 term9",
	}

	for _, q := range queries {
		b.Run(fmt.Sprintf("terms_%d", len(lexicalTermsIn(q))), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ranked := scorer.Score(candidates, q, relevance.BM25, 10)
				_ = ranked
			}
		})
	}
}

func lexicalTermsIn(query string) []string {
	var terms []string
	start := -1
	for i, r := range query {
		if r == ' ' {
			if start >= 0 {
				terms = append(terms, query[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		terms = append(terms, query[start:])
	}
	return terms
}
