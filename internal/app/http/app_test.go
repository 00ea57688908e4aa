package httpapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httprouters "github.com/mikutaniguchi/ticket-collection/internal/transport/http"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

func newTestServer(t *testing.T, checks map[string]HealthChecker) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tickets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tickets", "a.jpg"), []byte("jpeg"), 0o644))

	routers := httprouters.NewRouter(slog.Default(), nil, nil, nil, nil, nil, nil, "")

	s := New(slog.Default(), Options{
		Port:          "0",
		SessionSecret: "session",
		JWTSecret:     []byte("secret"),
		LoginURL:      "/login",
		UploadsDir:    dir,
		UploadsURL:    "http://localhost:8080/uploads",
	}, routers, checks)
	s.BuildRouters()

	return s, dir
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, map[string]HealthChecker{
		"postgres": checkFunc(func(context.Context) error { return nil }),
		"redis":    checkFunc(func(context.Context) error { return errors.New("refused") }),
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"postgres":"up","redis":"down"}`, rec.Body.String())
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		accept   string
		wantCode int
	}{
		{"static upload", http.MethodGet, "/uploads/tickets/a.jpg", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
		{"protected api", http.MethodGet, "/api/v1/tickets", "", http.StatusUnauthorized},
		{"protected browser", http.MethodGet, "/api/v1/tickets", "text/html", http.StatusFound},
		{"protected me", http.MethodGet, "/api/v1/me", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestUploadsPrefix(t *testing.T) {
	assert.Equal(t, "/uploads", uploadsPrefix("http://localhost:8080/uploads"))
	assert.Equal(t, "/static/files", uploadsPrefix("https://cdn.example.com/static/files/"))
	assert.Equal(t, "/uploads", uploadsPrefix("http://localhost:8080"))
}
