package labnotebook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/jwt"
	"github.com/magabrotheeeer/lab-notebook/internal/metrics"
	authservice "github.com/magabrotheeeer/lab-notebook/internal/services/auth"
	"github.com/magabrotheeeer/lab-notebook/internal/ws"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(log, nil)
	t.Cleanup(hub.Close)

	r := chi.NewRouter()
	RegisterRoutes(r, log, Services{
		Auth:        authservice.New(nil, jwt.NewJWTMaker("test-secret", time.Hour), nil, authservice.Options{}, log),
		DB:          pingerFunc(func(context.Context) error { return nil }),
		Hub:         hub,
		Metrics:     metrics.New(hub.Connected),
		AuthLimiter: middlewarectx.NewRateLimiter(0.001, 1),
	})
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(t)

	t.Run("health is public", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		for _, target := range []string{
			"/api/auth/me",
			"/api/projects",
			"/api/notes?project_id=1",
			"/api/calendar/events",
			"/api/calendar/ws",
			"/api/search?q=buffer",
			"/api/users",
		} {
			rec := serve(router, http.MethodGet, target, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		}
	})

	t.Run("auth endpoints are rate limited", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/api/auth/login", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(router, http.MethodPost, "/api/auth/login", `{}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/nothing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("metrics use route patterns", func(t *testing.T) {
		serve(router, http.MethodGet, "/api/projects/42", "")

		rec := serve(router, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `/projects/{id}"`)
		assert.NotContains(t, body, `/api/projects/42`)
		assert.Contains(t, body, "labnotebook_ws_clients 0")
	})
}
