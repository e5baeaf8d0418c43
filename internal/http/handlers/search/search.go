// Package search содержит HTTP-обработчик полнотекстового поиска.
package search

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики поиска.
type Service interface {
	Search(ctx context.Context, actor models.Actor, query string) (*models.SearchResult, error)
}

// Handler обрабатывает поисковые запросы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Поиск по проектам, экспериментам и заметкам
// @Description Ищет подстроку без учёта регистра среди доступных пользователю сущностей.
// @Tags Search
// @Security BearerAuth
// @Produce json
// @Param q query string true "Строка поиска"
// @Success 200 {object} response.Response{data=models.SearchResult}
// @Failure 400 {object} response.ErrorResponse
// @Router /search [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.search.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	res, err := h.service.Search(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Debug("search completed",
		slog.Int("projects", len(res.Projects)),
		slog.Int("experiments", len(res.Experiments)),
		slog.Int("notes", len(res.Notes)),
	)
	response.JSON(w, r, http.StatusOK, res)
}
