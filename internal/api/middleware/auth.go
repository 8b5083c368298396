package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/JMAlloway/Check-sub001/internal/api/response"
	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/audit"
	"github.com/JMAlloway/Check-sub001/internal/model"
	"github.com/JMAlloway/Check-sub001/internal/token"
)

type contextKey string

const claimsKey contextKey = "token_claims"

// Auth validates the Authorization bearer token against this connector's
// registered keys. Rejections are audited here so every denied attempt
// still produces exactly one record.
func Auth(validator *token.Validator, connectorID string, auditor *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			raw := bearerToken(r)
			if raw == "" {
				deny(w, r, auditor, connectorID, start, apperr.New(apperr.CodeAuth, "missing bearer token"))
				return
			}

			claims, err := validator.Validate(r.Context(), raw, connectorID)
			if err != nil {
				deny(w, r, auditor, connectorID, start, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, auditor *audit.Logger, connectorID string, start time.Time, err error) {
	auditor.Record(model.AuditRecord{
		Timestamp:   time.Now().UTC(),
		ConnectorID: connectorID,
		Action:      model.AuditAccessDenied,
		Endpoint:    r.URL.Path,
		Allow:       false,
		LatencyMs:   time.Since(start).Milliseconds(),
	})
	response.WriteDomainError(w, err)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// GetClaims returns the verified token claims, or nil outside Auth.
func GetClaims(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey).(*token.Claims)
	return claims
}

// WithClaims injects claims into a context; test helper for handlers.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
