// Package experiments содержит HTTP-обработчики экспериментов.
package experiments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики экспериментов.
type Service interface {
	Create(ctx context.Context, actor models.Actor, projectID int64, in models.ExperimentInput) (*models.Experiment, error)
	List(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Experiment, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Experiment, error)
	Update(ctx context.Context, actor models.Actor, id int64, in models.ExperimentInput) (*models.Experiment, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обрабатывает запросы к экспериментам.
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
// @Summary Создать эксперимент в проекте
// @Tags Experiments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID проекта"
// @Param request body models.ExperimentInput true "Эксперимент"
// @Success 201 {object} response.Response{data=models.Experiment}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /projects/{id}/experiments [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.experiments.create")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	projectID, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var in models.ExperimentInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	e, err := h.service.Create(r.Context(), actor, projectID, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("experiment created", slog.Int64("experiment_id", e.ID), slog.Int64("project_id", projectID))
	response.JSON(w, r, http.StatusCreated, e)
}

// List godoc
// @Summary Эксперименты проекта
// @Tags Experiments
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID проекта"
// @Success 200 {object} response.Response{data=[]models.Experiment}
// @Router /projects/{id}/experiments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.experiments.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	projectID, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	list, err := h.service.List(r.Context(), actor, projectID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Получить эксперимент
// @Tags Experiments
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID эксперимента"
// @Success 200 {object} response.Response{data=models.Experiment}
// @Router /experiments/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.experiments.get")

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
	e, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, e)
}

// Update godoc
// @Summary Изменить эксперимент
// @Tags Experiments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID эксперимента"
// @Param request body models.ExperimentInput true "Эксперимент"
// @Success 200 {object} response.Response{data=models.Experiment}
// @Router /experiments/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.experiments.update")

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
	var in models.ExperimentInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	e, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, e)
}

// Delete godoc
// @Summary Удалить эксперимент
// @Description Заметки эксперимента удаляются вместе с ним.
// @Tags Experiments
// @Security BearerAuth
// @Param id path int true "ID эксперимента"
// @Success 204
// @Router /experiments/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.experiments.delete")

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
	log.Info("experiment deleted", slog.Int64("experiment_id", id))
	response.NoContent(w)
}
