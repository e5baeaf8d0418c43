package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/handlertest"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "ok", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "db down", err: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable, wantBody: `"error":"database unavailable"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(handlertest.Logger(), pingerFunc(func(ctx context.Context) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				return tt.err
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, handlertest.Request(http.MethodGet, "/api/health", "", models.Actor{}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
