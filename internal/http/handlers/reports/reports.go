// Package reports содержит HTTP-обработчики PDF-отчётов.
package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/attachments"
	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики отчётов.
type Service interface {
	Create(ctx context.Context, actor models.Actor, in models.ReportInput) (*models.Report, error)
	List(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Report, error)
	Get(ctx context.Context, actor models.Actor, id int64, withPDF bool) (*models.Report, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обрабатывает запросы к отчётам.
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
// @Summary Сгенерировать отчёт
// @Description Собирает PDF из выбранных заметок проекта. Порядок заметок сохраняется.
// @Tags Reports
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.ReportInput true "Параметры отчёта"
// @Success 201 {object} response.Response{data=models.Report}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /reports [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.create")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var in models.ReportInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	rep, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("report generated",
		slog.Int64("report_id", rep.ID),
		slog.Int("pages", rep.PageCount),
		slog.Int64("size", rep.SizeBytes),
	)
	response.JSON(w, r, http.StatusCreated, rep)
}

// List godoc
// @Summary Отчёты проекта
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param project_id query int true "ID проекта"
// @Success 200 {object} response.Response{data=[]models.Report}
// @Router /reports [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	projectID, err := request.QueryID(r, "project_id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if projectID == nil {
		response.WriteError(w, r, log, apperr.NewValidation("project_id", "is required"))
		return
	}

	list, err := h.service.List(r.Context(), actor, *projectID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Метаданные отчёта
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID отчёта"
// @Success 200 {object} response.Response{data=models.Report}
// @Router /reports/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.get")

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
	rep, err := h.service.Get(r.Context(), actor, id, false)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, rep)
}

// Download godoc
// @Summary Скачать PDF отчёта
// @Tags Reports
// @Security BearerAuth
// @Produce application/pdf
// @Param id path int true "ID отчёта"
// @Success 200 {file} binary
// @Router /reports/{id}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.download")

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
	rep, err := h.service.Get(r.Context(), actor, id, true)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	attachments.WriteFile(w, "application/pdf", fileName(rep.Title), "attachment", rep.PDF)
}

func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "report"
	}
	return name + ".pdf"
}

// Delete godoc
// @Summary Удалить отчёт
// @Tags Reports
// @Security BearerAuth
// @Param id path int true "ID отчёта"
// @Success 204
// @Router /reports/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.delete")

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
	log.Info("report deleted", slog.Int64("report_id", id))
	response.NoContent(w)
}
