// Package lexical implements Stage-1 of the retrieval cascade: an inverted
// index over document terms supporting candidate-set and boolean (AND/OR/
// NOT) retrieval. It is grounded on the teacher platform's
// internal/indexer/index.MemoryIndex, generalized to also retain full
// Document copies (needed to re-tokenize on removal) and to expose the
// three-operator boolean evaluator the cascade's quickSearch/booleanSearch
// surface requires.
package lexical

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/tokenizer"
)

// entry is one inverted-index postings list. Invariant (checked by
// CheckInvariants, exercised in tests): DocFreq == len(DocIDs) ==
// len(TermFreq).
type entry struct {
	docIDs   map[string]struct{}
	termFreq map[string]int
}

// Index is Stage-1's in-memory inverted index. All internal maps are owned
// exclusively by Index; callers interact only through its methods.
type Index struct {
	mu          sync.RWMutex
	terms       map[string]*entry
	docs        map[string]document.Document
	docCount    int
	totalTerms  int64
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		terms: make(map[string]*entry),
		docs:  make(map[string]document.Document),
	}
}

// AddDocument tokenizes title+content and folds the document into the
// postings lists, then stores the document itself so Remove can later
// re-derive the same token list without depending on any other stage.
func (ix *Index) AddDocument(doc document.Document) {
	tokens := tokenizer.Tokenize(doc.Title + " " + doc.Content)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, term := range tokens {
		e, ok := ix.terms[term]
		if !ok {
			e = &entry{docIDs: make(map[string]struct{}), termFreq: make(map[string]int)}
			ix.terms[term] = e
		}
		e.docIDs[doc.ID] = struct{}{}
		e.termFreq[doc.ID]++
	}
	ix.docs[doc.ID] = doc
	ix.docCount++
	ix.totalTerms += int64(len(tokens))
}

// RemoveDocument recomputes the stored document's token list and unwinds
// its contribution to every postings list it touched. It reports false if
// the id is unknown.
func (ix *Index) RemoveDocument(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	doc, ok := ix.docs[id]
	if !ok {
		return false
	}
	tokens := tokenizer.Tokenize(doc.Title + " " + doc.Content)
	seen := make(map[string]struct{}, len(tokens))
	for _, term := range tokens {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		e, ok := ix.terms[term]
		if !ok {
			continue
		}
		delete(e.docIDs, id)
		delete(e.termFreq, id)
		if len(e.docIDs) == 0 {
			delete(ix.terms, term)
		}
	}
	delete(ix.docs, id)
	ix.docCount--
	ix.totalTerms -= int64(len(tokens))
	return true
}

// CandidateSearch tokenizes the query and returns the union of postings for
// every query token, truncated to maxResults. Truncation order is a stable
// sort by document id, making it deterministic within a run.
func (ix *Index) CandidateSearch(query string, maxResults int) []string {
	tokens := tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	union := make(map[string]struct{})
	for _, term := range tokens {
		e, ok := ix.terms[term]
		if !ok {
			continue
		}
		for id := range e.docIDs {
			union[id] = struct{}{}
		}
	}
	return truncateSorted(union, maxResults)
}

// Operator selects a boolean evaluation mode for Stage-1's boolean search.
type Operator int

const (
	OpAND Operator = iota
	OpOR
	OpNOT
)

// BooleanSearch evaluates the query tokens against the index under the
// given operator. NOT returns the complement of the union of postings with
// respect to the full known document set (not a per-query exclude list).
func (ix *Index) BooleanSearch(query string, op Operator) []string {
	tokens := tokenizer.Tokenize(query)
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	switch op {
	case OpAND:
		return sortedKeys(ix.intersect(tokens))
	case OpOR:
		return sortedKeys(ix.union(tokens))
	case OpNOT:
		union := ix.union(tokens)
		result := make([]string, 0, len(ix.docs))
		for id := range ix.docs {
			if _, excluded := union[id]; !excluded {
				result = append(result, id)
			}
		}
		sort.Strings(result)
		return result
	default:
		return nil
	}
}

func (ix *Index) union(tokens []string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, term := range tokens {
		e, ok := ix.terms[term]
		if !ok {
			continue
		}
		for id := range e.docIDs {
			result[id] = struct{}{}
		}
	}
	return result
}

func (ix *Index) intersect(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return map[string]struct{}{}
	}
	first, ok := ix.terms[tokens[0]]
	if !ok {
		return map[string]struct{}{}
	}
	candidates := make(map[string]struct{}, len(first.docIDs))
	for id := range first.docIDs {
		candidates[id] = struct{}{}
	}
	for _, term := range tokens[1:] {
		e, ok := ix.terms[term]
		if !ok {
			return map[string]struct{}{}
		}
		for id := range candidates {
			if _, present := e.docIDs[id]; !present {
				delete(candidates, id)
			}
		}
	}
	return candidates
}

// Stats are Stage-1's point-in-time index statistics.
type Stats struct {
	DocCount       int
	UniqueTerms    int
	TotalTokens    int64
	AvgTokensPerDoc float64
}

// Stats reports document count, unique-term count, total tokens, and
// average tokens per document.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var avg float64
	if ix.docCount > 0 {
		avg = float64(ix.totalTerms) / float64(ix.docCount)
	}
	return Stats{
		DocCount:        ix.docCount,
		UniqueTerms:     len(ix.terms),
		TotalTokens:     ix.totalTerms,
		AvgTokensPerDoc: avg,
	}
}

// Has reports whether id is a known document.
func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.docs[id]
	return ok
}

// CheckInvariants walks every postings list and verifies
// documentFrequency == |documentIds| == |keys(termFrequency)| and that
// every referenced document id is still present. It exists for tests.
func (ix *Index) CheckInvariants() error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for term, e := range ix.terms {
		if len(e.docIDs) != len(e.termFreq) {
			return invariantError(term, "docIDs/termFreq size mismatch")
		}
		for id := range e.docIDs {
			if _, ok := e.termFreq[id]; !ok {
				return invariantError(term, "docID missing from termFreq")
			}
			if _, ok := ix.docs[id]; !ok {
				return invariantError(term, "docID references a removed document")
			}
		}
	}
	return nil
}

func invariantError(term, msg string) error {
	return &InvariantError{Term: term, Msg: msg}
}

// InvariantError reports a broken Stage-1 postings invariant.
type InvariantError struct {
	Term string
	Msg  string
}

func (e *InvariantError) Error() string {
	return "lexical index invariant violated for term " + e.Term + ": " + e.Msg
}

func truncateSorted(set map[string]struct{}, maxResults int) []string {
	ids := sortedKeys(set)
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids
}

func sortedKeys(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
