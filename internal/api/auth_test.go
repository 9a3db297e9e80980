package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okBackend() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	handler := AuthMiddleware(AuthConfig{Enabled: false}, okBackend())

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestAuthMiddlewareValidKey(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKey: "test-key-1234567890abcdef"}
	handler := AuthMiddleware(cfg, okBackend())

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("X-API-Key", cfg.APIKey)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestAuthMiddlewareMissingKey(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKey: "test-key-1234567890abcdef"}
	handler := AuthMiddleware(cfg, okBackend())

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareInvalidKey(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKey: "test-key-1234567890abcdef"}
	handler := AuthMiddleware(cfg, okBackend())

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("X-API-Key", "wrong-key-1234567890abcd")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewarePublicEndpoints(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKey: "test-key-1234567890abcdef"}
	handler := AuthMiddleware(cfg, okBackend())

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200 without key, got %d", path, w.Code)
		}
	}
}

func TestValidateAuthConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{Enabled: false}, false},
		{"disabled with key", AuthConfig{Enabled: false, APIKey: "short"}, false},
		{"enabled no key", AuthConfig{Enabled: true}, true},
		{"enabled short key", AuthConfig{Enabled: true, APIKey: "tooshort"}, true},
		{"enabled good key", AuthConfig{Enabled: true, APIKey: "a-perfectly-fine-key"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAuthConfig(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("got err %v, want error %v", err, tc.wantErr)
			}
		})
	}
}
