package middleware

import (
	"net/http"
	"strings"

	"searchsync/internal/auth"
	"searchsync/internal/httputil"
)

// AuthMiddleware verifies bearer tokens and stores the token subject as the
// request owner. A nil verifier runs the server in anonymous mode: requests
// pass through with no owner and every row lives in the shared scope.
// Health checks and cached-content reads stay open in both modes.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil || isOpenPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithOwner(r, claims.Owner()))
		})
	}
}

// isOpenPath reports whether the path skips token verification
func isOpenPath(path string) bool {
	return path == "/api/health" || strings.HasPrefix(path, "/~cache/")
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
