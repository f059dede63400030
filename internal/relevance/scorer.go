// Package relevance implements Stage-2 of the retrieval cascade: a BM25
// (default) or TF-IDF probabilistic scorer over a Stage-1 candidate set.
// It is grounded on the teacher platform's internal/searcher/ranker BM25
// core loop (stable descending sort; scores are not rounded) but corrected to the
// classical Robertson/Sparck-Jones idf — ln((N-df+0.5)/(df+0.5)) with no
// smoothing "+1" inside the logarithm, unlike the teacher's saturating
// variant — and extended with a TF-IDF alternative and a per-term score
// breakdown for diagnostics.
package relevance

import (
	"math"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/topk"
)

// Method selects the scoring formula.
type Method int

const (
	BM25 Method = iota
	TFIDF
)

const excerptLen = 200

// Params are the BM25 tuning knobs.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the spec's BM25 defaults (k1=1.2, b=0.75).
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75}
}

// Scorer owns Stage-2's independent copy of the corpus: documents, per-
// document length, a document-frequency table, and running totals used to
// compute the average document length. It re-tokenizes on every add/remove
// rather than depending on Stage-1's internals.
type Scorer struct {
	mu          sync.RWMutex
	params      Params
	docs        map[string]document.Document
	docLen      map[string]int
	docFreq     map[string]int
	totalDocs   int
	totalLength int64
}

// New creates a Scorer with the default BM25 parameters.
func New() *Scorer {
	return NewWithParams(DefaultParams())
}

// NewWithParams creates a Scorer with explicit BM25 parameters.
func NewWithParams(p Params) *Scorer {
	return &Scorer{
		params:  p,
		docs:    make(map[string]document.Document),
		docLen:  make(map[string]int),
		docFreq: make(map[string]int),
	}
}

// AddDocument tokenizes and indexes a document's corpus statistics.
func (s *Scorer) AddDocument(doc document.Document) {
	tokens := tokenizer.Tokenize(doc.Title + " " + doc.Content)
	uniq := uniqueTerms(tokens)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[doc.ID] = doc
	s.docLen[doc.ID] = len(tokens)
	s.totalDocs++
	s.totalLength += int64(len(tokens))
	for term := range uniq {
		s.docFreq[term]++
	}
}

// RemoveDocument undoes AddDocument's bookkeeping for id, returning false
// if id is unknown.
func (s *Scorer) RemoveDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return false
	}
	tokens := tokenizer.Tokenize(doc.Title + " " + doc.Content)
	uniq := uniqueTerms(tokens)
	for term := range uniq {
		s.docFreq[term]--
		if s.docFreq[term] <= 0 {
			delete(s.docFreq, term)
		}
	}
	s.totalDocs--
	s.totalLength -= int64(s.docLen[id])
	delete(s.docLen, id)
	delete(s.docs, id)
	return true
}

// AvgDocLength is totalLength/totalDocuments, 0 when the corpus is empty.
func (s *Scorer) AvgDocLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avgDocLengthLocked()
}

func (s *Scorer) avgDocLengthLocked() float64 {
	if s.totalDocs == 0 {
		return 0
	}
	return float64(s.totalLength) / float64(s.totalDocs)
}

// DocCount returns the number of documents currently tracked.
func (s *Scorer) DocCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalDocs
}

// Result is one scored candidate with its diagnostic breakdown. Content is
// the full, untruncated document body (Stage-4's boost rules need to match
// terms anywhere in it, not just within Excerpt's first 200 characters);
// Excerpt is the display-truncated form for response payloads. Category,
// Tags, Metadata, and CreatedAt are carried through from the source
// Document so Stage-4's boost rules can read them without a second lookup.
type Result struct {
	ID         string
	Title      string
	Content    string
	Excerpt    string
	URL        string
	Category   string
	Tags       []string
	Metadata   document.Value
	CreatedAt  time.Time
	Score      float64
	TermScores map[string]float64
	DocLength  int
}

// Score ranks the given candidate ids against query under method, omitting
// zero-score documents, sorting by score descending (ties broken by id for
// determinism), and truncating to maxResults.
func (s *Scorer) Score(candidateIDs []string, query string, method Method, maxResults int) []Result {
	queryTerms := uniqueTermsSlice(tokenizer.Tokenize(query))
	if len(queryTerms) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := float64(s.totalDocs)
	avgdl := s.avgDocLengthLocked()

	results := make([]Result, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		doc, ok := s.docs[id]
		if !ok {
			continue
		}
		docTF := termFreq(tokenizer.Tokenize(doc.Title + " " + doc.Content))
		docLength := s.docLen[id]

		var total float64
		breakdown := make(map[string]float64)
		for _, term := range queryTerms {
			tf := docTF[term]
			df := s.docFreq[term]
			if tf <= 0 || df <= 0 {
				continue
			}
			var contribution float64
			switch method {
			case TFIDF:
				contribution = (float64(tf) / float64(docLength)) * math.Log(n/float64(df))
			default:
				idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5))
				tfNorm := (float64(tf) * (s.params.K1 + 1)) /
					(float64(tf) + s.params.K1*(1-s.params.B+s.params.B*float64(docLength)/nonZero(avgdl)))
				contribution = idf * tfNorm
			}
			total += contribution
			breakdown[term] = contribution
		}
		if total <= 0 {
			continue
		}
		results = append(results, Result{
			ID:         id,
			Title:      doc.Title,
			Content:    doc.Content,
			Excerpt:    excerpt(doc.Content),
			URL:        doc.URL,
			Category:   doc.Category,
			Tags:       doc.Tags,
			Metadata:   doc.Metadata,
			CreatedAt:  doc.CreatedAt,
			Score:      total,
			TermScores: breakdown,
			DocLength:  docLength,
		})
	}

	return topk.Select(results, maxResults,
		func(r Result) float64 { return r.Score },
		func(a, b Result) bool { return a.ID < b.ID },
	)
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLen {
		return content
	}
	return string(runes[:excerptLen]) + "…"
}

func uniqueTerms(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func uniqueTermsSlice(tokens []string) []string {
	set := uniqueTerms(tokens)
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

func termFreq(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}
