package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cascade"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/middleware"
)

// RouterConfig wires the optional ambient middleware into the router. A nil
// KeyValidator disables authentication and rate limiting entirely, which is
// the default for local development.
type RouterConfig struct {
	KeyValidator *apikey.Validator
	Limiter      *ratelimit.Limiter
	Cache        *cache.Cache[cascade.SearchResponse]
	Store        *store.DocumentStore
	Metrics      *metrics.Metrics
	Checker      *health.Checker
	WriteTimeout time.Duration
}

// NewRouter builds the full HTTP handler for the retrieval cascade: the
// versioned API surface plus health and metrics endpoints, wrapped in the
// request-id, CORS, auth, rate-limit, metrics, and timeout middleware
// chain, following the teacher platform's per-concern middleware layout
// (internal/gateway/middleware) consolidated into one service.
func NewRouter(service *cascade.Service, cfg RouterConfig) http.Handler {
	h := New(service, cfg.Cache, cfg.Store, cfg.Metrics)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/quick", h.QuickSearch)
	mux.HandleFunc("GET /api/v1/search/boolean", h.BooleanSearch)
	mux.HandleFunc("GET /api/v1/search/semantic", h.SemanticSearch)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("POST /api/v1/documents/batch", h.AddDocuments)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/similar", h.FindSimilar)
	mux.HandleFunc("POST /api/v1/behavior", h.RecordBehavior)
	mux.HandleFunc("PUT /api/v1/users/{userId}/profile", h.UpdateUserProfile)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)

	if cfg.Checker != nil {
		mux.HandleFunc("GET /health/live", cfg.Checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Checker.ReadyHandler())
	}

	var chain http.Handler = mux
	if cfg.WriteTimeout > 0 {
		chain = middleware.Timeout(cfg.WriteTimeout)(chain)
	}
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	if cfg.Limiter != nil && cfg.KeyValidator != nil {
		chain = middleware.RateLimit(cfg.Limiter)(chain)
	}
	if cfg.KeyValidator != nil {
		chain = middleware.Auth(cfg.KeyValidator)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	return chain
}
