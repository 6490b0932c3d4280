// ABOUTME: Tests for handshake token extraction and the admin role middleware
// ABOUTME: Covers header vs query precedence and role enforcement

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{
			name:   "bearer header",
			header: "Bearer abc",
			want:   "abc",
		},
		{
			name:  "query parameter",
			query: "xyz",
			want:  "xyz",
		},
		{
			name:   "header wins over query",
			header: "Bearer abc",
			query:  "xyz",
			want:   "abc",
		},
		{
			name:   "malformed header falls back to query",
			header: "Basic abc",
			query:  "xyz",
			want:   "xyz",
		},
		{
			name: "no token",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/chat"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			r := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	verifier := NewJWTVerifier([]byte("test-secret"))

	adminToken, err := verifier.Generate(&Identity{UserID: 1, Role: RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	userToken, err := verifier.Generate(&Identity{UserID: 2, Role: "USER"}, time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	handler := RequireRole(verifier, RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{
			name:       "admin allowed",
			token:      adminToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "user forbidden",
			token:      userToken,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing token",
			token:      "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			token:      "garbage",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			handler(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
