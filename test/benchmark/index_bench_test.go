// Package benchmark contains Go benchmarks for the lexical index and the
// full retrieval cascade, measuring throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cascade"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/lexical"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/personalize"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/semantic"
)

func benchDoc(id, title, content string) document.Document {
	now := time.Now()
	return document.Document{ID: id, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
}

// BenchmarkLexicalIndexAdd measures per-document insert throughput into the
// in-memory inverted index.
func BenchmarkLexicalIndexAdd(b *testing.B) {
	ix := lexical.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		ix.AddDocument(benchDoc(docID, "benchmark title", "this is a benchmark document with several terms for testing indexing performance"))
	}
}

// BenchmarkLexicalIndexCandidateSearch measures single-term lookup latency
// over 10,000 documents.
func BenchmarkLexicalIndexCandidateSearch(b *testing.B) {
	ix := lexical.New()
	for i := 0; i < 10000; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		ix.AddDocument(benchDoc(docID, "distributed search", "search engine with distributed indexing and query processing"))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		results := ix.CandidateSearch("search", 100)
		_ = results
	}
}

// BenchmarkLexicalIndexCandidateSearchParallel measures concurrent read
// throughput against the same 10,000-document index.
func BenchmarkLexicalIndexCandidateSearchParallel(b *testing.B) {
	ix := lexical.New()
	for i := 0; i < 10000; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		ix.AddDocument(benchDoc(docID, "distributed search", "search engine with distributed indexing and query processing"))
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			results := ix.CandidateSearch("search", 100)
			_ = results
		}
	})
}

// BenchmarkCascadeAddDocument measures full four-stage indexing throughput
// (lexical index, BM25 corpus stats, embedding, personalization store) at
// various pre-loaded corpus sizes.
func BenchmarkCascadeAddDocument(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	for _, preload := range sizes {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			svc := cascade.New(semantic.NewHashEmbedder(64), personalize.Weights{UserProfile: 0.5, Context: 0.3, Temporal: 0.2}, cascade.DefaultCaps())
			ctx := context.Background()
			for i := 0; i < preload; i++ {
				docID := fmt.Sprintf("preload-%d", i)
				if err := svc.AddDocument(ctx, benchDoc(docID, "preload doc", "preloading documents for benchmark warmup phase")); err != nil {
					b.Fatal(err)
				}
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				docID := fmt.Sprintf("bench-%d", i)
				if err := svc.AddDocument(ctx, benchDoc(docID, "benchmark title", "benchmark document body for measuring indexing throughput")); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkCascadeSearch measures end-to-end four-stage search latency
// across 10,000 documents.
func BenchmarkCascadeSearch(b *testing.B) {
	svc := cascade.New(semantic.NewHashEmbedder(64), personalize.Weights{UserProfile: 0.5, Context: 0.3, Temporal: 0.2}, cascade.DefaultCaps())
	ctx := context.Background()

	terms := []string{"distributed", "search", "analytics", "cascade", "indexing", "query", "engine", "ranking"}
	docs := make([]document.Document, 10000)
	for i := range docs {
		title := fmt.Sprintf("document about %s and %s", terms[i%len(terms)], terms[(i+1)%len(terms)])
		body := fmt.Sprintf("this document covers %s %s %s in production systems",
			terms[i%len(terms)], terms[(i+2)%len(terms)], terms[(i+3)%len(terms)])
		docs[i] = benchDoc(fmt.Sprintf("doc-%d", i), title, body)
	}
	if err := svc.AddDocuments(ctx, docs); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := cascade.SearchRequest{Query: terms[i%len(terms)], Limit: 10}
		resp, err := svc.Search(ctx, req)
		if err != nil {
			b.Fatal(err)
		}
		_ = resp
	}
}
