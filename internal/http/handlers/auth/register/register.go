// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Первый зарегистрированный пользователь становится администратором. После создания
// учётной записи сервис ставит в очередь письмо с подтверждением адреса.
package register

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Request: структура входных данных для регистрации.
//
// Пароль ограничен 72 байтами, это предел bcrypt.
type Request struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

// Handler обрабатывает HTTP-запросы на регистрацию.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись. Первый пользователь системы получает права администратора.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} response.Response{data=models.User} "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 409 {object} response.ErrorResponse "E-mail уже занят"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("user registered", slog.Int64("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))
	response.JSON(w, r, http.StatusCreated, user)
}
