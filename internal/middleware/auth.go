package middleware

import (
	"net/http"
	"strings"

	"github.com/skillup-labs/skillup/backend/internal/identity"
)

// BearerToken lifts the Authorization bearer token onto the request context
// so identity can be resolved at send time. Requests without a token pass
// through; operations that require identity fail closed later.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			r = r.WithContext(identity.WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
