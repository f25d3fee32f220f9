package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kampusasistani/rag/internal/auth"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	srv, err := NewHTTPServer(HTTPServerConfig{
		Port:       0,
		JWTManager: auth.NewJWTManager(&auth.JWTConfig{Secret: "test", Expiry: time.Hour}),
		Credentials: map[string]Credential{
			"admin":   {Password: "parola", Role: auth.RoleAdmin},
			"student": {Password: "parola", Role: auth.RoleStudent},
		},
	})
	if err != nil {
		t.Fatalf("NewHTTPServer failed: %v", err)
	}
	return srv
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username": "admin", "password": "parola"}`))
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.Role != auth.RoleAdmin {
		t.Errorf("expected admin role, got %q", resp.Role)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username": "admin", "password": "yanlis"}`))
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/query"},
		{http.MethodGet, "/api/documents"},
		{http.MethodPost, "/api/documents"},
		{http.MethodGet, "/api/analytics/queries"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.jwtManager.GenerateToken("student", auth.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/documents"},
		{http.MethodDelete, "/api/documents/x.pdf"},
		{http.MethodGet, "/api/analytics/queries"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as student: expected 403, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestQueryHandlerWithoutClaims(t *testing.T) {
	srv := newTestServer(t)

	// Handler invoked directly, bypassing the auth middleware. It must
	// reject the request rather than dereference missing claims.
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question": "Mezuniyet için kaç AKTS gerekir?"}`))
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
