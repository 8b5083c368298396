package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const correlationKey contextKey = "correlation_id"

// CorrelationHeader is echoed on every response so the remote console can
// tie a browser fetch to this gateway's logs and audit trail.
const CorrelationHeader = "X-Correlation-ID"

// Correlation assigns each request a correlation ID, honoring one supplied
// by the caller.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		ctx := context.WithValue(r.Context(), correlationKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the request's correlation ID, or "".
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}
