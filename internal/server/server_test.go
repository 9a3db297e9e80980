package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddlewareAllowAll(t *testing.T) {
	handler := CORSMiddleware(CORSConfig{}, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials header must not be set with wildcard origin")
	}
}

func TestCORSMiddlewareAllowlist(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://songs.example"}}
	handler := CORSMiddleware(cfg, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("Origin", "https://songs.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://songs.example" {
		t.Errorf("Allow-Origin = %q, want allowed origin echoed", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials header should be set for named origins")
	}

	// Disallowed origin gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin must not receive CORS headers")
	}

	// Disallowed preflight is rejected outright.
	req = httptest.NewRequest(http.MethodOptions, "/songs", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("preflight from disallowed origin = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCORSPreflightAllowed(t *testing.T) {
	handler := CORSMiddleware(CORSConfig{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should not reach the inner handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/songs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(WebUICSPConfig(), okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("CSP missing default-src: %q", csp)
	}
	if !strings.Contains(csp, "connect-src 'self' ws: wss:") {
		t.Errorf("web UI CSP must allow websocket connections: %q", csp)
	}
}

func TestAPICSPHeader(t *testing.T) {
	csp := APICSPConfig().BuildCSPHeader()
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("API CSP should deny all sources: %q", csp)
	}
}

func TestBuildCSPHeaderEmpty(t *testing.T) {
	if got := (CSPConfig{}).BuildCSPHeader(); got != "" {
		t.Errorf("empty config should build empty header, got %q", got)
	}
}

func TestAbsPath(t *testing.T) {
	if got := AbsPath("library.db"); !strings.HasSuffix(got, "library.db") {
		t.Errorf("AbsPath = %q, want suffix library.db", got)
	}
}
