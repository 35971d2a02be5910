package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const ContextKeyRequestID contextKey = "relief.gateway.requestId"

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a UUID unless the caller already supplied
// one, and echoes it on the response so support can correlate traces.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}
