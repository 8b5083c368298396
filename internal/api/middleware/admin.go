package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/JMAlloway/Check-sub001/internal/api/response"
)

// AdminAuth guards the local operator endpoints with a shared key compared
// in constant time. An empty configured key disables the surface outright.
func AdminAuth(adminKey string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(adminKey))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				response.WriteError(w, http.StatusForbidden, "admin surface is disabled")
				return
			}
			got := sha256.Sum256([]byte(r.Header.Get("X-Admin-Key")))
			if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
				response.WriteError(w, http.StatusUnauthorized, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
