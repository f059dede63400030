// Package cascade is the aggregating service that wires Stage-1 (lexical),
// Stage-2 (relevance), Stage-3 (semantic), and Stage-4 (personalize) into
// the documented four-stage pipeline. It fans out add/remove to every
// stage, runs search end to end with per-layer statistics, and exposes the
// quickSearch/booleanSearch/semanticSearch/findSimilar/recordBehavior/
// updateUserProfile/stats/health surface the transport layer calls through
// to. Grounded on the teacher's internal/searcher/executor orchestration
// shape (tokenize → score → bound), narrowed from a sharded multi-service
// split to a single in-process pipeline per this project's scope.
package cascade

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/lexical"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/personalize"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/semantic"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
)

// Caps are the per-layer result ceilings from the configuration surface.
type Caps struct {
	Layer1 int
	Layer2 int
	Layer3 int
	Final  int
}

// DefaultCaps returns the spec's defaults.
func DefaultCaps() Caps {
	return Caps{Layer1: 10000, Layer2: 1000, Layer3: 100, Final: 20}
}

// Service is the aggregating cascade: one instance per process, owning one
// instance of each stage.
type Service struct {
	caps    Caps
	lexical *lexical.Index
	scorer  *relevance.Scorer
	rerank  *semantic.Reranker
	persona *personalize.Personalizer
}

// New wires the four stages into a single aggregating Service.
func New(embedder semantic.Embedder, weights personalize.Weights, caps Caps) *Service {
	return &Service{
		caps:    caps,
		lexical: lexical.New(),
		scorer:  relevance.New(),
		rerank:  semantic.NewReranker(semantic.NewProvider(embedder), semantic.NewVectorStore()),
		persona: personalize.New(personalize.NewStore(), weights),
	}
}

// AddDocument fans doc out to Stage-1, Stage-2, and Stage-3. A Stage-3
// embedding failure is reported as a LayerError; Stage-1/Stage-2 are
// always updated (they cannot fail on well-formed input).
func (s *Service) AddDocument(ctx context.Context, doc document.Document) error {
	if doc.ID == "" {
		return apperrors.NewSearchError(apperrors.CodeAddDocumentError,
			apperrors.NewValidationError("id", "document id is required"))
	}
	if doc.Title == "" || doc.Content == "" {
		return apperrors.NewSearchError(apperrors.CodeAddDocumentError,
			apperrors.NewValidationError("title/content", "title and content are required"))
	}

	s.lexical.AddDocument(doc)
	s.scorer.AddDocument(doc)
	if err := s.rerank.AddDocument(ctx, doc); err != nil {
		return apperrors.NewSearchError(apperrors.CodeAddDocumentError, err)
	}
	return nil
}

// AddDocuments adds each document in order, stopping and reporting the
// first failure.
func (s *Service) AddDocuments(ctx context.Context, docs []document.Document) error {
	for _, doc := range docs {
		if err := s.AddDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDocument fans removal out to all three stages. It reports
// NotFoundError if id was unknown to Stage-1 (the stage of record for
// presence).
func (s *Service) RemoveDocument(id string) error {
	removed := s.lexical.RemoveDocument(id)
	s.scorer.RemoveDocument(id)
	s.rerank.RemoveDocument(id)
	if !removed {
		return apperrors.NewSearchError(apperrors.CodeRemoveDocumentError, &apperrors.NotFoundError{ID: id})
	}
	return nil
}

// LayerStats reports one stage's candidate count and execution time.
type LayerStats struct {
	Count         int
	ExecutionTime time.Duration
}

// SearchRequest is the full 4-stage cascade's input.
type SearchRequest struct {
	Query           string
	UserID          string
	Limit           int
	Offset          int
	Context         *personalize.Context
	PersonalizeNow  time.Time
}

// SearchResult is one ranked, fully-annotated hit.
type SearchResult struct {
	ID                   string
	Title                string
	Content              string
	URL                  string
	Score                float64
	Category             string
	Tags                 []string
	Similarity           float64
	PersonalizationBoost float64
	ContextBoost         float64
	TemporalBoost        float64
}

// SearchResponse is the full cascade's output: ranked results plus
// per-layer observability.
type SearchResponse struct {
	Results              []SearchResult
	TotalCount           int
	ExecutionTime        time.Duration
	PersonalizationScore float64
	Layer1               LayerStats
	Layer2               LayerStats
	Layer3               LayerStats
	Layer4               LayerStats
}

// Search runs the full Stage-1 → Stage-2 → Stage-3 → Stage-4 pipeline. A
// query that yields no Stage-1 candidates is not an error: the response
// carries an empty result set with all four layer stats present.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	start := time.Now()
	if req.Query == "" || len(req.Query) > 500 {
		return SearchResponse{}, apperrors.NewSearchError(apperrors.CodeSearchError,
			apperrors.NewValidationError("query", "query must be 1-500 characters"))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.caps.Final
	}

	l1Start := time.Now()
	candidates := s.lexical.CandidateSearch(req.Query, s.caps.Layer1)
	layer1 := LayerStats{Count: len(candidates), ExecutionTime: time.Since(l1Start)}

	if len(candidates) == 0 {
		return SearchResponse{
			Results:       nil,
			TotalCount:    0,
			ExecutionTime: time.Since(start),
			Layer1:        layer1,
		}, nil
	}

	l2Start := time.Now()
	stage2 := s.scorer.Score(candidates, req.Query, relevance.BM25, s.caps.Layer2)
	layer2 := LayerStats{Count: len(stage2), ExecutionTime: time.Since(l2Start)}

	l3Start := time.Now()
	stage3, err := s.rerank.Rerank(ctx, stage2, req.Query, s.caps.Layer3)
	if err != nil {
		return SearchResponse{}, apperrors.NewSearchError(apperrors.CodeSearchError, err)
	}
	layer3 := LayerStats{Count: len(stage3), ExecutionTime: time.Since(l3Start)}

	// Input.Content carries the full document body, not Excerpt: §4.5's
	// search-history and prior-query overlap boosts must see terms anywhere
	// in the document, not just its first 200 characters. The excerpt is
	// restored for display when the final SearchResult is built below.
	inputs := make([]personalize.Input, len(stage3))
	for i, r := range stage3 {
		inputs[i] = personalize.Input{
			ID:        r.ID,
			Title:     r.Title,
			Content:   r.Content,
			URL:       r.URL,
			Category:  r.Category,
			Tags:      r.Tags,
			Metadata:  r.Metadata,
			CreatedAt: r.CreatedAt,
			Score:     r.FinalScore,
		}
	}
	similarity := make(map[string]float64, len(stage3))
	excerpts := make(map[string]string, len(stage3))
	for _, r := range stage3 {
		similarity[r.ID] = r.Similarity
		excerpts[r.ID] = r.Excerpt
	}

	now := req.PersonalizeNow
	if now.IsZero() {
		now = time.Now()
	}

	l4Start := time.Now()
	finalLimit := limit
	if finalLimit > s.caps.Final {
		finalLimit = s.caps.Final
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	// Personalize ranks the full offset+finalLimit window so a page beyond
	// the first can still be sliced out below, then re-truncated to
	// finalLimit after the offset is applied.
	stage4, personalizationScore := s.persona.Personalize(inputs, req.UserID, req.Context, now, offset+finalLimit)
	layer4 := LayerStats{Count: len(stage4), ExecutionTime: time.Since(l4Start)}

	if offset >= len(stage4) {
		stage4 = nil
	} else {
		end := offset + finalLimit
		if end > len(stage4) {
			end = len(stage4)
		}
		stage4 = stage4[offset:end]
	}

	results := make([]SearchResult, len(stage4))
	for i, r := range stage4 {
		results[i] = SearchResult{
			ID:                   r.ID,
			Title:                r.Title,
			Content:              excerpts[r.ID],
			URL:                  r.URL,
			Score:                r.FinalScore,
			Category:             r.Category,
			Tags:                 r.Tags,
			Similarity:           similarity[r.ID],
			PersonalizationBoost: r.PersonalizationBoost,
			ContextBoost:         r.ContextBoost,
			TemporalBoost:        r.TemporalBoost,
		}
	}

	return SearchResponse{
		Results:              results,
		TotalCount:           len(results),
		ExecutionTime:        time.Since(start),
		PersonalizationScore: personalizationScore,
		Layer1:               layer1,
		Layer2:               layer2,
		Layer3:               layer3,
		Layer4:               layer4,
	}, nil
}

// QuickSearch runs Stage-1 alone.
func (s *Service) QuickSearch(query string) []string {
	return s.lexical.CandidateSearch(query, s.caps.Layer1)
}

// BooleanSearch runs Stage-1's boolean evaluator alone.
func (s *Service) BooleanSearch(query string, op lexical.Operator) []string {
	return s.lexical.BooleanSearch(query, op)
}

// SemanticSearch runs Stage-3's standalone corpus-wide similarity search.
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int) ([]semantic.SimilarityResult, error) {
	return s.rerank.SemanticSearch(ctx, query, limit)
}

// FindSimilar runs Stage-3's similarity-to-a-stored-vector search. An
// unknown id surfaces as Stage-3's LayerError, wrapped here in the usual
// SearchError so the transport maps it to 400 like any other client-input
// error, distinct from removeDocument's NotFoundError/404.
func (s *Service) FindSimilar(id string, limit int) ([]semantic.SimilarityResult, error) {
	results, err := s.rerank.FindSimilar(id, limit)
	if err != nil {
		return nil, apperrors.NewSearchError(apperrors.CodeSearchError, err)
	}
	return results, nil
}

// RecordBehavior forwards a behavior event to Stage-4's profile store.
func (s *Service) RecordBehavior(userID string, action personalize.Action, data personalize.BehaviorData) {
	s.persona.Store().RecordBehavior(userID, action, data)
}

// UpdateUserProfile upserts userID's profile in Stage-4's profile store.
func (s *Service) UpdateUserProfile(userID string, patch personalize.ProfilePatch) personalize.Profile {
	return s.persona.Store().Update(userID, patch)
}

// Stats is the per-stage statistics surface.
type Stats struct {
	Lexical   lexical.Stats
	DocCount  int
	VectorLen int
}

// Stats reports per-stage statistics.
func (s *Service) Stats() Stats {
	return Stats{
		Lexical:   s.lexical.Stats(),
		DocCount:  s.scorer.DocCount(),
		VectorLen: s.rerank.VectorCount(),
	}
}

// Ready reports whether Stage-3's embedding provider has finished loading.
func (s *Service) Ready() bool {
	return s.rerank.Ready()
}
