// Package notes содержит HTTP-обработчики заметок.
package notes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики заметок.
type Service interface {
	Create(ctx context.Context, actor models.Actor, in models.NoteInput) (*models.Note, error)
	List(ctx context.Context, actor models.Actor, f models.NoteFilter) ([]*models.Note, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Note, error)
	Update(ctx context.Context, actor models.Actor, id int64, in models.NoteUpdate) (*models.Note, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обрабатывает запросы к заметкам.
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
// @Summary Создать заметку
// @Description Эксперимент, если указан, должен принадлежать тому же проекту.
// @Tags Notes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.NoteInput true "Заметка"
// @Success 201 {object} response.Response{data=models.Note}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /notes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.notes.create")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var in models.NoteInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	n, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("note created", slog.Int64("note_id", n.ID), slog.Int64("project_id", n.ProjectID))
	response.JSON(w, r, http.StatusCreated, n)
}

// List godoc
// @Summary Заметки проекта
// @Tags Notes
// @Security BearerAuth
// @Produce json
// @Param project_id query int true "ID проекта"
// @Param experiment_id query int false "ID эксперимента"
// @Param limit query int false "Размер страницы (по умолчанию 100, не больше 500)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.Note}
// @Router /notes [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.notes.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	var f models.NoteFilter
	projectID, err := request.QueryID(r, "project_id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if projectID != nil {
		f.ProjectID = *projectID
	}
	if f.ExperimentID, err = request.QueryID(r, "experiment_id"); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if f.Limit, err = request.QueryInt(r, "limit", 0); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if f.Offset, err = request.QueryInt(r, "offset", 0); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	list, err := h.service.List(r.Context(), actor, f)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Получить заметку
// @Tags Notes
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID заметки"
// @Success 200 {object} response.Response{data=models.Note}
// @Router /notes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.notes.get")

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
	n, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, n)
}

// Update godoc
// @Summary Изменить заметку
// @Tags Notes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID заметки"
// @Param request body models.NoteUpdate true "Заметка"
// @Success 200 {object} response.Response{data=models.Note}
// @Router /notes/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.notes.update")

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
	var in models.NoteUpdate
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	n, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, n)
}

// Delete godoc
// @Summary Удалить заметку
// @Tags Notes
// @Security BearerAuth
// @Param id path int true "ID заметки"
// @Success 204
// @Router /notes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.notes.delete")

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
	log.Info("note deleted", slog.Int64("note_id", id))
	response.NoContent(w)
}
