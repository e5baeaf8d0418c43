package account

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/magabrotheeeer/lab-notebook/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Logout(ctx context.Context, actor models.Actor) error {
	return m.Called(ctx, actor).Error(0)
}

func (m *ServiceMock) Me(ctx context.Context, actor models.Actor) (*models.User, error) {
	args := m.Called(ctx, actor)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *ServiceMock) ChangePassword(ctx context.Context, actor models.Actor, current, newPassword string,
	meta auth.SessionMeta) (*auth.LoginResult, error) {
	args := m.Called(ctx, actor, current, newPassword, meta)
	res, _ := args.Get(0).(*auth.LoginResult)
	return res, args.Error(1)
}

func (m *ServiceMock) ResendVerification(ctx context.Context, actor models.Actor) error {
	return m.Called(ctx, actor).Error(0)
}

var actor = models.Actor{UserID: 4, SessionID: "sid"}

func newRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	return req.WithContext(middlewarectx.WithActor(req.Context(), actor))
}

func newHandler(svc *ServiceMock) *Handler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
}

func TestLogout(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Logout", mock.Anything, actor).Return(nil).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).Logout(rec, newRequest(http.MethodPost, ""))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestLogout_Unauthenticated(t *testing.T) {
	svc := new(ServiceMock)
	rec := httptest.NewRecorder()

	newHandler(svc).Logout(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestMe_FallsBackToService(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Me", mock.Anything, actor).Return(&models.User{ID: 4, Name: "Grace"}, nil).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).Me(rec, newRequest(http.MethodGet, ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Grace"`)
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*ServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success returns fresh token",
			body: `{"current_password":"old-password","new_password":"new-password"}`,
			setup: func(m *ServiceMock) {
				m.On("ChangePassword", mock.Anything, actor, "old-password", "new-password", mock.Anything).
					Return(&auth.LoginResult{Token: "fresh"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"token":"fresh"`,
		},
		{
			name: "wrong current password",
			body: `{"current_password":"bad","new_password":"new-password"}`,
			setup: func(m *ServiceMock) {
				m.On("ChangePassword", mock.Anything, actor, "bad", "new-password", mock.Anything).
					Return(nil, apperr.NewValidation("current_password", "does not match")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"current_password":"does not match"`,
		},
		{
			name:       "new password too short",
			body:       `{"current_password":"old-password","new_password":"123"}`,
			setup:      func(_ *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"new_password"`,
		},
		{
			name:       "new password over 72 bytes",
			body:       `{"current_password":"old-password","new_password":"` + strings.Repeat("ж", 48) + `"}`,
			setup:      func(_ *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"new_password":"must be at most 72 bytes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setup(svc)

			rec := httptest.NewRecorder()
			newHandler(svc).ChangePassword(rec, newRequest(http.MethodPost, tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestResendVerification(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ResendVerification", mock.Anything, actor).Return(nil).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).ResendVerification(rec, newRequest(http.MethodPost, ""))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	svc.AssertExpectations(t)
}
