// Package collaborators содержит HTTP-обработчики управления соавторами проекта.
package collaborators

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики соавторов.
type Service interface {
	ListCollaborators(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Collaborator, error)
	AddCollaborator(ctx context.Context, actor models.Actor, projectID int64, in models.CollaboratorInput) (*models.Collaborator, error)
	UpdateCollaboratorRole(ctx context.Context, actor models.Actor, projectID, userID int64, role string) (*models.Collaborator, error)
	RemoveCollaborator(ctx context.Context, actor models.Actor, projectID, userID int64) error
}

// Handler обрабатывает запросы к соавторам.
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
// @Summary Соавторы проекта
// @Tags Collaborators
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID проекта"
// @Success 200 {object} response.Response{data=[]models.Collaborator}
// @Router /projects/{id}/collaborators [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.collaborators.list")

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
	list, err := h.service.ListCollaborators(r.Context(), actor, projectID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Add godoc
// @Summary Добавить соавтора
// @Description Пользователь задаётся user_id или email. Роль viewer или editor, регистр не важен.
// @Tags Collaborators
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID проекта"
// @Param request body models.CollaboratorInput true "Соавтор"
// @Success 201 {object} response.Response{data=models.Collaborator}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Пользователь уже соавтор"
// @Router /projects/{id}/collaborators [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.collaborators.add")

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
	var in models.CollaboratorInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	c, err := h.service.AddCollaborator(r.Context(), actor, projectID, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("collaborator added",
		slog.Int64("project_id", projectID),
		slog.Int64("user_id", c.UserID),
		slog.String("role", c.Role),
	)
	response.JSON(w, r, http.StatusCreated, c)
}

// UpdateRole godoc
// @Summary Сменить роль соавтора
// @Tags Collaborators
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID проекта"
// @Param userID path int true "ID пользователя"
// @Param request body models.RoleInput true "Роль"
// @Success 200 {object} response.Response{data=models.Collaborator}
// @Router /projects/{id}/collaborators/{userID} [put]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.collaborators.update_role")

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
	userID, err := request.ID(r, "userID")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var in models.RoleInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	c, err := h.service.UpdateCollaboratorRole(r.Context(), actor, projectID, userID, in.Role)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, c)
}

// Remove godoc
// @Summary Удалить соавтора
// @Description Владелец или администратор убирает любого соавтора, соавтор может выйти сам.
// @Tags Collaborators
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param userID path int true "ID пользователя"
// @Success 204
// @Router /projects/{id}/collaborators/{userID} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.collaborators.remove")

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
	userID, err := request.ID(r, "userID")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.RemoveCollaborator(r.Context(), actor, projectID, userID); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("collaborator removed", slog.Int64("project_id", projectID), slog.Int64("user_id", userID))
	response.NoContent(w)
}
