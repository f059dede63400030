package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/auth/apikey"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/errors"
)

type apiKeyInfoKey struct{}

// Auth returns middleware that validates API keys from the request.
// Keys can be provided via Authorization: Bearer <key>, X-API-Key header,
// or the api_key query parameter. Paths under /health are exempt.
func Auth(validator *apikey.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			key := extractAPIKey(r)
			if key == "" {
				writeAuthError(w, apperrors.ErrUnauthorized)
				return
			}

			info, err := validator.Validate(r.Context(), key)
			if err != nil {
				writeAuthError(w, apperrors.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyInfoKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo retrieves the validated KeyInfo from the request context.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	info, _ := ctx.Value(apiKeyInfoKey{}).(*apikey.KeyInfo)
	return info
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatusCode(err))
	w.Write([]byte(`{"error":"` + err.Error() + `"}`))
}
