package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginPolicyAllowList(t *testing.T) {
	tests := []struct {
		name    string
		config  []string
		origin  string
		allowed bool
	}{
		{"exact match", []string{"http://localhost:3009"}, "http://localhost:3009", true},
		{"case insensitive", []string{"http://Localhost:3009"}, "HTTP://LOCALHOST:3009", true},
		{"not listed", []string{"http://localhost:3009"}, "http://evil.example.com", false},
		{"wildcard", []string{"*"}, "http://anything.example.com", true},
		{"empty origin rejected", []string{"*"}, "", false},
		{"invalid entries skipped", []string{"not-a-url", "https://chat.example.com"}, "https://chat.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.config, nil)
			require.Equal(t, tt.allowed, policy.isAllowed(tt.origin))
		})
	}
}

func TestCheckOriginAllowsNonBrowserClients(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:3009"}, nil)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	require.True(t, policy.checkOrigin(r))

	r.Header.Set("Origin", "http://evil.example.com")
	require.False(t, policy.checkOrigin(r))
}

func TestCORSMiddleware(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"https://chat.example.com"}, nil)

	handler := policy.cors(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/register", nil)
	r.Header.Set("Origin", "https://chat.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal("https://chat.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	req.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))

	// Preflight is answered by the middleware itself.
	r = httptest.NewRequest(http.MethodOptions, "/register", nil)
	r.Header.Set("Origin", "https://chat.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	req.Equal(http.StatusNoContent, w.Code)

	// Disallowed origins get no CORS headers.
	r = httptest.NewRequest(http.MethodPost, "/register", nil)
	r.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	req.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}
