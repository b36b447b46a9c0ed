package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// RequireRole lets a request through only when its token carries one of
// roles. Ownership checks stay in the services; this guard only stops the
// wrong kind of account early.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	denied := "requires role " + strings.Join(roles, " or ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeJSONError(w, http.StatusForbidden, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
