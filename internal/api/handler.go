package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cascade"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/lexical"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/personalize"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/tracing"
)

// Handler implements the retrieval cascade's HTTP surface, delegating
// every operation to a cascade.Service. Cache, Store, and Metrics are all
// optional: a nil Cache skips response caching, a nil Store skips warm-start
// persistence, a nil Metrics skips instrumentation.
type Handler struct {
	service *cascade.Service
	cache   *cache.Cache[cascade.SearchResponse]
	store   *store.DocumentStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wraps a cascade.Service for HTTP access.
func New(service *cascade.Service, respCache *cache.Cache[cascade.SearchResponse], docStore *store.DocumentStore, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		cache:   respCache,
		store:   docStore,
		metrics: m,
		logger:  slog.Default().With("component", "api-handler"),
	}
}

// Search runs the full four-stage pipeline, optionally serving from and
// populating the search-response cache.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	spanCtx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidationError("body", "malformed JSON"))
		return
	}
	span.SetAttr("query", body.Query)

	req := cascade.SearchRequest{
		Query:   body.Query,
		UserID:  body.UserID,
		Limit:   body.Limit,
		Offset:  body.Offset,
		Context: body.Context.toPersonalize(),
	}

	compute := func() (cascade.SearchResponse, error) { return h.service.Search(spanCtx, req) }

	var resp cascade.SearchResponse
	var cacheHit bool
	var err error
	if h.cache != nil && req.Context == nil {
		resp, cacheHit, err = h.cache.GetOrCompute(spanCtx, cacheKey(body), compute)
	} else {
		resp, err = compute()
	}
	if err != nil {
		log.Error("search failed", "query", body.Query, "error", err)
		span.SetAttr("error", err.Error())
		if h.metrics != nil {
			h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, err)
		return
	}

	h.recordSearchMetrics(resp, cacheHit, time.Since(start))
	h.traceLayers(spanCtx, resp)
	span.SetAttr("cache_hit", cacheHit)
	span.SetAttr("results", resp.TotalCount)
	log.Info("search completed",
		"query", body.Query,
		"returned", resp.TotalCount,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, toSearchResponseBody(resp))
}

// traceLayers records one child span per cascade stage so a request's trace
// shows where its latency went, without requiring the cascade itself to know
// about tracing.
func (h *Handler) traceLayers(ctx context.Context, resp cascade.SearchResponse) {
	layers := []struct {
		name  string
		stats cascade.LayerStats
	}{
		{"lexical", resp.Layer1},
		{"relevance", resp.Layer2},
		{"semantic", resp.Layer3},
		{"personalize", resp.Layer4},
	}
	for _, l := range layers {
		_, child := tracing.StartChildSpan(ctx, l.name)
		child.SetAttr("candidates", l.stats.Count)
		child.StartTime = time.Now().Add(-l.stats.ExecutionTime)
		child.End()
	}
}

func (h *Handler) recordSearchMetrics(resp cascade.SearchResponse, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	if resp.TotalCount == 0 {
		resultType = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	cacheStatus := "disabled"
	if h.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.WithLabelValues().Observe(float64(resp.TotalCount))
	h.metrics.LayerLatency.WithLabelValues("lexical").Observe(resp.Layer1.ExecutionTime.Seconds())
	h.metrics.LayerLatency.WithLabelValues("relevance").Observe(resp.Layer2.ExecutionTime.Seconds())
	h.metrics.LayerLatency.WithLabelValues("semantic").Observe(resp.Layer3.ExecutionTime.Seconds())
	h.metrics.LayerLatency.WithLabelValues("personalize").Observe(resp.Layer4.ExecutionTime.Seconds())
	h.metrics.LayerCandidateCount.WithLabelValues("lexical").Observe(float64(resp.Layer1.Count))
	h.metrics.LayerCandidateCount.WithLabelValues("relevance").Observe(float64(resp.Layer2.Count))
	h.metrics.LayerCandidateCount.WithLabelValues("semantic").Observe(float64(resp.Layer3.Count))
	h.metrics.LayerCandidateCount.WithLabelValues("personalize").Observe(float64(resp.Layer4.Count))
	h.metrics.PersonalizationBoost.Observe(resp.PersonalizationScore)
}

func cacheKey(body searchRequestBody) string {
	data, _ := json.Marshal(body)
	return string(data)
}

// QuickSearch runs Stage-1 alone: GET /api/v1/search/quick?q=...
func (h *Handler) QuickSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.NewValidationError("q", "query parameter is required"))
		return
	}
	ids := h.service.QuickSearch(query)
	h.writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

// BooleanSearch runs Stage-1's boolean evaluator: GET /api/v1/search/boolean?q=...&op=AND|OR|NOT
func (h *Handler) BooleanSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	op, err := parseOperator(r.URL.Query().Get("op"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	ids := h.service.BooleanSearch(query, op)
	h.writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

// SemanticSearch runs Stage-3's corpus-wide similarity search: GET /api/v1/search/semantic?q=...&limit=...
func (h *Handler) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.NewValidationError("q", "query parameter is required"))
		return
	}
	limit := parseLimit(r, 20)
	results, err := h.service.SemanticSearch(r.Context(), query, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": similarityResultsToBody(results)})
}

// FindSimilar returns documents similar to an already-indexed one:
// GET /api/v1/documents/{id}/similar?limit=...
func (h *Handler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := parseLimit(r, 10)
	results, err := h.service.FindSimilar(id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": similarityResultsToBody(results)})
}

// AddDocument indexes a single document: POST /api/v1/documents
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var body documentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidationError("body", "malformed JSON"))
		return
	}
	doc := body.toDocument(time.Now())
	if err := h.service.AddDocument(r.Context(), doc); err != nil {
		h.writeError(w, err)
		return
	}
	h.persist(r.Context(), doc)
	h.onCorpusChanged(r.Context(), 1)
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

// AddDocuments indexes a batch of documents: POST /api/v1/documents/batch
func (h *Handler) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var bodies []documentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&bodies); err != nil {
		h.writeError(w, apperrors.NewValidationError("body", "malformed JSON"))
		return
	}
	now := time.Now()
	docs := make([]document.Document, len(bodies))
	for i, b := range bodies {
		docs[i] = b.toDocument(now)
	}
	if err := h.service.AddDocuments(r.Context(), docs); err != nil {
		h.writeError(w, err)
		return
	}
	for _, doc := range docs {
		h.persist(r.Context(), doc)
	}
	h.onCorpusChanged(r.Context(), len(docs))
	h.writeJSON(w, http.StatusCreated, map[string]any{"indexed": len(docs)})
}

// RemoveDocument deletes a document from every stage: DELETE /api/v1/documents/{id}
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.RemoveDocument(id); err != nil {
		h.writeError(w, err)
		return
	}
	if h.store != nil {
		if err := h.store.Delete(r.Context(), id); err != nil {
			h.logger.Error("document delete not persisted", "doc_id", id, "error", err)
		}
	}
	h.onCorpusChanged(r.Context(), 0)
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "removed"})
}

// persist writes doc to the warm-start store, if one is configured. A
// failure here is logged, not returned: persistence is an optimization on
// top of the in-process index, which already has the document.
func (h *Handler) persist(ctx context.Context, doc document.Document) {
	if h.store == nil {
		return
	}
	if err := h.store.Upsert(ctx, doc); err != nil {
		h.logger.Error("document not persisted", "doc_id", doc.ID, "error", err)
	}
}

// onCorpusChanged adds indexed to the docs-indexed counter and drops the
// stale search-response cache; a corpus mutation invalidates every prior result.
func (h *Handler) onCorpusChanged(ctx context.Context, indexed int) {
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Add(float64(indexed))
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Error("cache invalidation failed", "error", err)
		}
	}
}

// RecordBehavior appends a click, search, or time_spent event to a user's
// profile: POST /api/v1/behavior
func (h *Handler) RecordBehavior(w http.ResponseWriter, r *http.Request) {
	var body behaviorRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidationError("body", "malformed JSON"))
		return
	}
	if body.UserID == "" {
		h.writeError(w, apperrors.NewValidationError("userId", "userId is required"))
		return
	}
	switch body.Action {
	case personalize.ActionClick, personalize.ActionSearch, personalize.ActionTimeSpent:
	default:
		h.writeError(w, apperrors.NewValidationError("action", "unknown action"))
		return
	}
	h.service.RecordBehavior(body.UserID, body.Action, personalize.BehaviorData{
		DocumentID:  body.DocumentID,
		Query:       body.Query,
		TimeSpentMs: body.TimeSpentMs,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// UpdateUserProfile upserts a user's preferences and demographics:
// PUT /api/v1/users/{userId}/profile
func (h *Handler) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, apperrors.NewValidationError("userId", "userId is required"))
		return
	}
	var body profilePatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidationError("body", "malformed JSON"))
		return
	}
	profile := h.service.UpdateUserProfile(userID, body.toPatch())
	h.writeJSON(w, http.StatusOK, profileToBody(profile))
}

// Stats reports per-stage statistics: GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"lexical": map[string]any{
			"docCount":        stats.Lexical.DocCount,
			"uniqueTerms":     stats.Lexical.UniqueTerms,
			"totalTokens":     stats.Lexical.TotalTokens,
			"avgTokensPerDoc": stats.Lexical.AvgTokensPerDoc,
		},
		"docCount":  stats.DocCount,
		"vectorLen": stats.VectorLen,
		"ready":     h.service.Ready(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": err.Error()})
}

func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func parseOperator(raw string) (lexical.Operator, error) {
	switch raw {
	case "", "OR":
		return lexical.OpOR, nil
	case "AND":
		return lexical.OpAND, nil
	case "NOT":
		return lexical.OpNOT, nil
	default:
		return 0, apperrors.NewValidationError("op", "must be AND, OR, or NOT")
	}
}

func toSearchResponseBody(resp cascade.SearchResponse) searchResponseBody {
	results := make([]searchResultBody, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultBody{
			ID:                   r.ID,
			Title:                r.Title,
			Content:              r.Content,
			URL:                  r.URL,
			Score:                r.Score,
			Category:             r.Category,
			Tags:                 r.Tags,
			Similarity:           r.Similarity,
			PersonalizationBoost: r.PersonalizationBoost,
			ContextBoost:         r.ContextBoost,
			TemporalBoost:        r.TemporalBoost,
		}
	}
	return searchResponseBody{
		Results:              results,
		TotalCount:           resp.TotalCount,
		ExecutionTime:        resp.ExecutionTime.String(),
		PersonalizationScore: resp.PersonalizationScore,
		Layer1:               toLayerStatsBody(resp.Layer1),
		Layer2:               toLayerStatsBody(resp.Layer2),
		Layer3:               toLayerStatsBody(resp.Layer3),
		Layer4:               toLayerStatsBody(resp.Layer4),
	}
}

func toLayerStatsBody(s cascade.LayerStats) layerStatsBody {
	return layerStatsBody{Count: s.Count, ExecutionTime: s.ExecutionTime.String()}
}
