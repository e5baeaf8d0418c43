// Package login реализует HTTP-обработчик входа пользователя.
//
// Handler декодирует и валидирует учётные данные, делегирует проверку сервису
// аутентификации и при успехе возвращает JWT, срок его действия и профиль пользователя.
// Неверный пароль и неизвестный e-mail неразличимы для клиента (401).
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/services/auth"
)

// Request: структура входных данных для входа.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Handler обрабатывает HTTP-запросы на вход.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис аутентификации
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, email, password string, meta auth.SessionMeta) (*auth.LoginResult, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет e-mail и пароль, создаёт сессию и возвращает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=auth.LoginResult} "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password, auth.SessionMeta{
		UserAgent: r.UserAgent(),
		IP:        middlewarectx.ClientIP(r),
	})
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("login success", slog.Int64("user_id", res.User.ID))
	response.JSON(w, r, http.StatusOK, res)
}
