// Package users содержит HTTP-обработчики администрирования пользователей.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики пользователей.
type Service interface {
	List(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.User, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.User, error)
	Update(ctx context.Context, actor models.Actor, id int64, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обрабатывает запросы к пользователям.
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

// List godoc
// @Summary Список пользователей
// @Description Только для администратора.
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Размер страницы (по умолчанию 50, не более 200)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.User}
// @Failure 403 {object} response.ErrorResponse
// @Router /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	limit, err := request.QueryInt(r, "limit", 0)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	offset, err := request.QueryInt(r, "offset", 0)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	list, err := h.service.List(r.Context(), actor, limit, offset)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Получить пользователя
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response{data=models.User}
// @Router /users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.get")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	u, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, u)
}

// Update godoc
// @Summary Изменить пользователя
// @Description Имя меняет сам пользователь или администратор, признак is_admin только администратор.
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID пользователя"
// @Param request body models.UserUpdate true "Изменения"
// @Success 200 {object} response.Response{data=models.User}
// @Router /users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.update")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var upd models.UserUpdate
	if err := request.Decode(r, &upd); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	u, err := h.service.Update(r.Context(), actor, id, upd)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("user updated", slog.Int64("user_id", id), slog.Int64("by", actor.UserID))
	response.JSON(w, r, http.StatusOK, u)
}

// Delete godoc
// @Summary Удалить пользователя
// @Tags Users
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Success 204
// @Router /users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.delete")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("user deleted", slog.Int64("user_id", id), slog.Int64("by", actor.UserID))
	response.NoContent(w)
}
