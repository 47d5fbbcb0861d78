// Package middleware contains the chi middleware stack shared by the HTTP
// server: request logging with trace ids, panic recovery and request timeouts.
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/common/httpx"
	"github.com/tansive/mockinterview/internal/common/logtrace"
	"github.com/tansive/mockinterview/internal/common/uuid"
)

const RequestIDHeader = "X-Interview-Request-ID"

// RequestLogger tags the request context with a request id (reusing the
// caller's header when present) and logs the request and its outcome.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		ctx := logtrace.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		rw := httpx.NewResponseWriter(w)
		log.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}
