// Package calendar содержит HTTP-обработчики календаря и подписку на изменения по WebSocket.
package calendar

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Service описывает интерфейс бизнес-логики календаря.
type Service interface {
	Create(ctx context.Context, actor models.Actor, in models.EventInput) (*models.CalendarEvent, error)
	List(ctx context.Context, actor models.Actor, f models.EventFilter) ([]*models.CalendarEvent, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.CalendarEvent, error)
	Update(ctx context.Context, actor models.Actor, id int64, in models.EventInput) (*models.CalendarEvent, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Subscriber обслуживает WebSocket-соединение пользователя.
type Subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, actor models.Actor) error
}

// Handler обрабатывает запросы к календарю.
type Handler struct {
	log     *slog.Logger
	service Service
	hub     Subscriber
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, hub Subscriber) *Handler {
	return &Handler{log: log, service: service, hub: hub}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Create godoc
// @Summary Создать событие
// @Tags Calendar
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.EventInput true "Событие"
// @Success 201 {object} response.Response{data=models.CalendarEvent}
// @Failure 400 {object} response.ErrorResponse
// @Router /calendar/events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.calendar.create")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	var in models.EventInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	ev, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("event created", slog.Int64("event_id", ev.ID))
	response.JSON(w, r, http.StatusCreated, ev)
}

// List godoc
// @Summary События календаря
// @Description Возвращает события, пересекающиеся с интервалом [from, to).
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param from query string false "Начало интервала, RFC 3339"
// @Param to query string false "Конец интервала, RFC 3339"
// @Param project_id query int false "ID проекта"
// @Success 200 {object} response.Response{data=[]models.CalendarEvent}
// @Router /calendar/events [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.calendar.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	f, err := filter(r)
	if err != nil {
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

func filter(r *http.Request) (models.EventFilter, error) {
	var (
		f   models.EventFilter
		err error
	)
	if f.From, err = request.QueryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = request.QueryTime(r, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return f, apperr.NewValidation("to", "must be after from")
	}
	if f.ProjectID, err = request.QueryID(r, "project_id"); err != nil {
		return f, err
	}
	return f, nil
}

// Get godoc
// @Summary Получить событие
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID события"
// @Success 200 {object} response.Response{data=models.CalendarEvent}
// @Router /calendar/events/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.calendar.get")

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
	ev, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ev)
}

// Update godoc
// @Summary Изменить событие
// @Tags Calendar
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID события"
// @Param request body models.EventInput true "Событие"
// @Success 200 {object} response.Response{data=models.CalendarEvent}
// @Router /calendar/events/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.calendar.update")

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
	var in models.EventInput
	if err := request.Decode(r, &in); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	ev, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("event updated", slog.Int64("event_id", id))
	response.JSON(w, r, http.StatusOK, ev)
}

// Delete godoc
// @Summary Удалить событие
// @Tags Calendar
// @Security BearerAuth
// @Param id path int true "ID события"
// @Success 204
// @Router /calendar/events/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.calendar.delete")

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
	log.Info("event deleted", slog.Int64("event_id", id))
	response.NoContent(w)
}

// Subscribe godoc
// @Summary Подписка на изменения календаря
// @Description WebSocket. Токен передаётся в заголовке Authorization или в параметре access_token.
// @Tags Calendar
// @Security BearerAuth
// @Param access_token query string false "JWT"
// @Success 101
// @Router /calendar/ws [get]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.calendar.subscribe")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Debug("websocket subscribed", slog.Int64("user_id", actor.UserID))
	// Upgrader сам отвечает клиенту при ошибке рукопожатия.
	if err := h.hub.Serve(w, r, actor); err != nil {
		log.Warn("websocket upgrade failed", sl.Err(err))
		return
	}
	log.Debug("websocket closed", slog.Int64("user_id", actor.UserID))
}
