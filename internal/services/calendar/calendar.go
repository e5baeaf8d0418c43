// Package calendar содержит бизнес-логику событий календаря и уведомляет
// подключённых по WebSocket пользователей об их изменениях.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/lab-notebook/internal/access"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Типы уведомлений об изменении события.
const (
	ChangeCreated = "event.created"
	ChangeUpdated = "event.updated"
	ChangeDeleted = "event.deleted"
)

// Repository: операции хранилища над событиями.
type Repository interface {
	access.ScopeLoader
	CreateEvent(ctx context.Context, createdBy int64, in models.EventInput) (*models.CalendarEvent, error)
	GetEvent(ctx context.Context, id int64) (*models.CalendarEvent, error)
	ListEvents(ctx context.Context, userID int64, all bool, f models.EventFilter) ([]*models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id int64) error
	GetExperiment(ctx context.Context, id int64) (*models.Experiment, error)
	ListCollaborators(ctx context.Context, projectID int64) ([]*models.Collaborator, error)
}

// Notifier рассылает сообщение подключённым пользователям, которых пропускает allow.
type Notifier interface {
	Publish(msg any, allow func(actor models.Actor) bool) int
}

// Service: сервис календаря.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log}
}

func (s *Service) validate(ctx context.Context, in *models.EventInput) error {
	if in.EndsAt.Before(in.StartsAt) {
		return apperr.NewValidation("ends_at", "must not be before starts_at")
	}
	attendees := make([]string, 0, len(in.Attendees))
	for _, a := range in.Attendees {
		if a = strings.TrimSpace(a); a != "" {
			attendees = append(attendees, a)
		}
	}
	in.Attendees = attendees
	if in.Status == "" {
		in.Status = models.EventScheduled
	}

	if in.ExperimentID == nil {
		return nil
	}
	if in.ProjectID == nil {
		return apperr.NewValidation("project_id", "is required when experiment_id is set")
	}
	e, err := s.repo.GetExperiment(ctx, *in.ExperimentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NewValidation("experiment_id", "experiment not found")
		}
		return err
	}
	if e.ProjectID != *in.ProjectID {
		return apperr.NewValidation("experiment_id", "experiment belongs to another project")
	}
	return nil
}

// authorize проверяет доступ к событию. Создатель и администратор имеют полный доступ,
// к событию проекта — также те, кому проект доступен на action.
func (s *Service) authorize(ctx context.Context, actor models.Actor, ev *models.CalendarEvent, action access.Action) error {
	if actor.IsAdmin || ev.CreatedBy == actor.UserID {
		return nil
	}
	if ev.ProjectID == nil {
		return apperr.ErrForbidden
	}
	_, err := access.Authorize(ctx, s.repo, actor, access.KindEvent, *ev.ProjectID, ev.CreatedBy, action)
	return err
}

// Create создаёт событие. Для события проекта нужны права на запись в проект.
func (s *Service) Create(ctx context.Context, actor models.Actor, in models.EventInput) (*models.CalendarEvent, error) {
	const op = "calendar.Create"

	if err := s.validate(ctx, &in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.ProjectID != nil {
		if _, err := access.Authorize(ctx, s.repo, actor, access.KindEvent, *in.ProjectID, 0, access.Write); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	ev, err := s.repo.CreateEvent(ctx, actor.UserID, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notify(ctx, ChangeCreated, ev)
	return ev, nil
}

// List возвращает видимые actor события в заданном интервале.
func (s *Service) List(ctx context.Context, actor models.Actor, f models.EventFilter) ([]*models.CalendarEvent, error) {
	const op = "calendar.List"

	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("to", "must not be before from"))
	}
	if f.ProjectID != nil {
		if _, err := access.Authorize(ctx, s.repo, actor, access.KindEvent, *f.ProjectID, 0, access.Read); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	list, err := s.repo.ListEvents(ctx, actor.UserID, actor.IsAdmin, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает событие.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.CalendarEvent, error) {
	const op = "calendar.Get"

	ev, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorize(ctx, actor, ev, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ev, nil
}

// Update заменяет поля события.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64, in models.EventInput) (*models.CalendarEvent, error) {
	const op = "calendar.Update"

	current, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorize(ctx, actor, current, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// перенос события в другой проект требует прав на запись в нём
	if in.ProjectID != nil && (current.ProjectID == nil || *current.ProjectID != *in.ProjectID) {
		if _, err := access.Authorize(ctx, s.repo, actor, access.KindEvent, *in.ProjectID, 0, access.Write); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	ev, err := s.repo.UpdateEvent(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notify(ctx, ChangeUpdated, ev)
	if current.ProjectID != nil && (ev.ProjectID == nil || *ev.ProjectID != *current.ProjectID) {
		s.notify(ctx, ChangeDeleted, current)
	}
	return ev, nil
}

// Delete удаляет событие.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "calendar.Delete"

	ev, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorize(ctx, actor, ev, access.Write); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.notify(ctx, ChangeDeleted, ev)
	return nil
}

// notify рассылает изменение создателю, администраторам и участникам проекта события.
// Ошибка определения получателей не отменяет уже выполненную операцию.
func (s *Service) notify(ctx context.Context, kind string, ev *models.CalendarEvent) {
	const op = "calendar.notify"

	readers := map[int64]struct{}{ev.CreatedBy: {}}
	if ev.ProjectID != nil {
		scope, err := s.repo.ProjectScope(ctx, *ev.ProjectID, ev.CreatedBy)
		if err != nil {
			s.log.Warn("failed to resolve event audience", sl.Op(op), slog.Int64("event_id", ev.ID), sl.Err(err))
			return
		}
		readers[scope.OwnerID] = struct{}{}
		collaborators, err := s.repo.ListCollaborators(ctx, *ev.ProjectID)
		if err != nil {
			s.log.Warn("failed to resolve event audience", sl.Op(op), slog.Int64("event_id", ev.ID), sl.Err(err))
			return
		}
		for _, c := range collaborators {
			if access.NormalizeRole(c.Role) != "" {
				readers[c.UserID] = struct{}{}
			}
		}
	}

	msg := models.EventChange{Type: kind, EventID: ev.ID, ProjectID: ev.ProjectID}
	n := s.notifier.Publish(msg, func(a models.Actor) bool {
		if a.IsAdmin {
			return true
		}
		_, ok := readers[a.UserID]
		return ok
	})
	s.log.Debug("calendar change published", sl.Op(op), slog.String("type", kind),
		slog.Int64("event_id", ev.ID), slog.Int("recipients", n))
}
