package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var claimsKey contextKey

// ClaimsFromContext returns the verified claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

// RequireAuth accepts a token from the "token" cookie (set by login) or an
// Authorization: Bearer header.
func RequireAuth(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie("token"); err == nil {
				token = cookie.Value
			}
			if token == "" {
				if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
					token = strings.TrimPrefix(header, "Bearer ")
				}
			}
			if token == "" {
				http.Error(w, "missing auth token", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				http.Error(w, "invalid auth token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// RequireAdmin must be nested inside RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			http.Error(w, "admin permission required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
