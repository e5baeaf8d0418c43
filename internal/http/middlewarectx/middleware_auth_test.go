package middlewarectx_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) Authenticate(ctx context.Context, token string) (*models.User, models.Actor, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*models.User)
	return u, args.Get(1).(models.Actor), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		query          string
		token          string
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{name: "missing token", wantStatusCode: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic abc", wantStatusCode: http.StatusUnauthorized},
		{
			name:           "revoked session",
			authHeader:     "Bearer revoked",
			token:          "revoked",
			mockErr:        fmt.Errorf("auth.Authenticate: %w", apperr.ErrUnauthenticated),
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "storage failure is 500",
			authHeader:     "Bearer good",
			token:          "good",
			mockErr:        apperr.Transient(fmt.Errorf("connection refused")),
			wantStatusCode: http.StatusInternalServerError,
		},
		{name: "valid header", authHeader: "Bearer good", token: "good", wantStatusCode: http.StatusOK, wantCalled: true},
		{name: "scheme is case-insensitive", authHeader: "bearer good", token: "good", wantStatusCode: http.StatusOK, wantCalled: true},
		{name: "query token", query: "?access_token=good", token: "good", wantStatusCode: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthenticatorMock)
			if tt.token != "" {
				authMock.On("Authenticate", mock.Anything, tt.token).
					Return(&models.User{ID: 5, Name: "Ada"}, models.Actor{UserID: 5, SessionID: "s1"}, tt.mockErr).Once()
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				actor, ok := middlewarectx.ActorFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, int64(5), actor.UserID)
				user, ok := middlewarectx.UserFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "Ada", user.Name)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/projects"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middlewarectx.AuthMiddleware(authMock, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			authMock.AssertExpectations(t)
		})
	}
}

func TestActorFrom_Missing(t *testing.T) {
	_, ok := middlewarectx.ActorFrom(context.Background())
	assert.False(t, ok)

	ctx := middlewarectx.WithActor(context.Background(), models.Actor{UserID: 3})
	a, ok := middlewarectx.ActorFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(3), a.UserID)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(0.001, 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(next)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:5000"), "other clients keep their own budget")
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(1, 1)
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	time.Sleep(1100 * time.Millisecond)
	assert.True(t, limiter.Allow("1.1.1.1"))
}
