// ABOUTME: HTTP helpers for JWT authentication on the gateway surface
// ABOUTME: Extracts tokens from handshake metadata and guards admin API routes

package auth

import (
	"net/http"
	"strings"
)

// TokenFromRequest extracts a credential token from an HTTP request.
// It checks the Authorization header first, then the "token" query
// parameter, matching what chat clients send during the WebSocket
// handshake. Returns "" when no token is present.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, msg := extractBearerToken(header); msg == "" {
			return token
		}
	}
	return r.URL.Query().Get("token")
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// RequireRole wraps an HTTP handler so only callers presenting a valid
// token with the given role can reach it.
func RequireRole(verifier TokenVerifier, role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if identity.Role != role {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}
