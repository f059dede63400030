// Package middleware provides HTTP middleware shared by internal/api,
// following the teacher platform's per-concern middleware layout (a small
// file per cross-cutting behavior, composed by the router).
package middleware

import (
	"context"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/logger"
	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDHeader is the response header carrying the request id, matching
// the convention pkg/logger's WithRequestID/FromContext pair expects
// callers to propagate through context.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a request id (from the incoming header, or a freshly
// generated UUID) to each request, stores it in the request context, and
// echoes it back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = logger.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID reads the request id stashed by RequestID, returning "" if
// none is present.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
