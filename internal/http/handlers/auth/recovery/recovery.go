// Package recovery содержит открытые обработчики восстановления доступа:
// запрос сброса пароля, сброс по токену и подтверждение e-mail.
package recovery

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
)

// Service описывает интерфейс бизнес-логики восстановления доступа.
type Service interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
}

// ForgotRequest: тело запроса на сброс пароля.
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest: тело запроса на установку нового пароля.
type ResetRequest struct {
	Token    string `json:"token" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

// VerifyRequest: тело запроса на подтверждение e-mail.
type VerifyRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

// Handler обрабатывает запросы восстановления доступа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// ForgotPassword godoc
// @Summary Запрос сброса пароля
// @Description Всегда отвечает 200, чтобы по ответу нельзя было узнать, зарегистрирован ли адрес.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ForgotRequest true "E-mail"
// @Success 200 {object} response.Response
// @Router /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.forgot_password")

	var req ForgotRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{
		"message": "if the account exists, a reset link has been sent",
	})
}

// ResetPassword godoc
// @Summary Сброс пароля по токену
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Токен и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Токен недействителен или истёк"
// @Router /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.reset_password")

	var req ResetRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("password reset")
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "password updated"})
}

// VerifyEmail godoc
// @Summary Подтверждение e-mail
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Токен из письма"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Токен недействителен или истёк"
// @Router /auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.verify_email")

	var req VerifyRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "email verified"})
}
