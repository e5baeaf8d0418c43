// Package projects содержит HTTP-обработчики проектов.
package projects

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики проектов.
type Service interface {
	Create(ctx context.Context, actor models.Actor, in models.ProjectInput) (*models.Project, error)
	List(ctx context.Context, actor models.Actor) ([]*models.Project, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Project, error)
	Update(ctx context.Context, actor models.Actor, id int64, in models.ProjectInput) (*models.Project, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обрабатывает запросы к проектам.
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

// Create godoc
// @Summary Создать проект
// @Description Создаёт проект, владельцем которого становится текущий пользователь.
// @Tags Projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.ProjectInput true "Проект"
// @Success 201 {object} response.Response{data=models.Project}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /projects [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.projects.create")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var in models.ProjectInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	p, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("project created", slog.Int64("project_id", p.ID))
	response.JSON(w, r, http.StatusCreated, p)
}

// List godoc
// @Summary Список проектов
// @Description Собственные проекты и проекты, где пользователь соавтор. Администратор видит все.
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Project}
// @Router /projects [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.projects.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	list, err := h.service.List(r.Context(), actor)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Получить проект
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID проекта"
// @Success 200 {object} response.Response{data=models.Project}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.projects.get")

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
	p, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p)
}

// Update godoc
// @Summary Изменить проект
// @Tags Projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID проекта"
// @Param request body models.ProjectInput true "Проект"
// @Success 200 {object} response.Response{data=models.Project}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.projects.update")

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
	var in models.ProjectInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	p, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("project updated", slog.Int64("project_id", id))
	response.JSON(w, r, http.StatusOK, p)
}

// Delete godoc
// @Summary Удалить проект
// @Description Удаляет проект вместе с экспериментами, заметками, вложениями и соавторами.
// @Tags Projects
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.projects.delete")

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
	log.Info("project deleted", slog.Int64("project_id", id))
	response.NoContent(w)
}
