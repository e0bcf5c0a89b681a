package middleware

import (
	"net"
	"net/http"
	"strconv"

	"share-note-backend/pkg/auth"
	pkgerrors "share-note-backend/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit applies a per-client-IP limit of requestsPerMinute
func RateLimit(limiter auth.RateLimiter, requestsPerMinute int, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	retryAfter := "60"
	if requestsPerMinute > 0 {
		retryAfter = strconv.Itoa(max(1, 60/requestsPerMinute))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			allowed, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				// Fail open on limiter errors
				logger.Warn("Rate limiter failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				errorHandler.Handle(w, r, pkgerrors.NewRateLimitError(requestsPerMinute, "minute"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the caller's IP. RemoteAddr carries the forwarded
// address only when the router trusts proxy headers; on Lambda it is the
// API Gateway source IP.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
