// Package account содержит обработчики операций над собственной учётной записью:
// выход, профиль, смена пароля и повторная отправка письма подтверждения.
package account

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/magabrotheeeer/lab-notebook/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики учётной записи.
type Service interface {
	Logout(ctx context.Context, actor models.Actor) error
	Me(ctx context.Context, actor models.Actor) (*models.User, error)
	ChangePassword(ctx context.Context, actor models.Actor, current, newPassword string, meta auth.SessionMeta) (*auth.LoginResult, error)
	ResendVerification(ctx context.Context, actor models.Actor) error
}

// ChangePasswordRequest: тело запроса смены пароля.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,maxbytes=72"`
}

// Handler обрабатывает запросы к учётной записи текущего пользователя.
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

// Logout godoc
// @Summary Выход
// @Description Удаляет сессию, на которую выпущен токен. Токен сразу перестаёт действовать.
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.logout")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.Logout(r.Context(), actor); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("logout", slog.Int64("user_id", actor.UserID))
	response.NoContent(w)
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.User}
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.me")

	if user, ok := middlewarectx.UserFrom(r.Context()); ok {
		response.JSON(w, r, http.StatusOK, user)
		return
	}
	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Смена пароля
// @Description Проверяет текущий пароль, завершает все сессии пользователя и выдаёт новый токен.
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Текущий и новый пароль"
// @Success 200 {object} response.Response{data=auth.LoginResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.change_password")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var req ChangePasswordRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	res, err := h.service.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword, auth.SessionMeta{
		UserAgent: r.UserAgent(),
		IP:        middlewarectx.ClientIP(r),
	})
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("password changed", slog.Int64("user_id", actor.UserID))
	response.JSON(w, r, http.StatusOK, res)
}

// ResendVerification godoc
// @Summary Повторное письмо подтверждения
// @Tags Auth
// @Security BearerAuth
// @Success 202 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Адрес уже подтверждён"
// @Router /auth/resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.resend_verification")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.ResendVerification(r.Context(), actor); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{"message": "verification email sent"})
}
