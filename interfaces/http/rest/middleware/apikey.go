package middleware

import (
	"crypto/subtle"
	"net/http"

	pkgerrors "share-note-backend/pkg/errors"
)

// APIKeyHeader carries the shared secret of the paired frontend
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key does not equal apiKey.
// The comparison takes the same time wherever the keys differ.
func RequireAPIKey(apiKey string, errorHandler *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	expected := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := []byte(r.Header.Get(APIKeyHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(supplied, expected) != 1 {
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid API key."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
