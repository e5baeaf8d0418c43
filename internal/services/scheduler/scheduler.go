// Package scheduler выполняет периодическое обслуживание: удаляет истёкшие сессии
// и одноразовые токены, рассылает напоминания о событиях календаря.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Repository: операции хранилища, нужные планировщику.
type Repository interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	PurgeExpiredTokens(ctx context.Context) (int64, error)
	DueReminders(ctx context.Context, from, to time.Time) ([]*models.CalendarEvent, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)
}

// Mailer ставит письмо в очередь отправки.
type Mailer interface {
	SendEmail(ctx context.Context, msg models.EmailMessage) error
}

// Service: планировщик.
type Service struct {
	repo   Repository
	mailer Mailer
	window time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// New создает новый экземпляр Service. window — за сколько до начала события отправлять напоминание.
func New(repo Repository, mailer Mailer, window time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// Run выполняет RunOnce сразу и затем каждые interval до отмены ctx.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход обслуживания. Ошибки отдельных шагов логируются
// и не прерывают остальные шаги.
func (s *Service) RunOnce(ctx context.Context) {
	const op = "scheduler.RunOnce"
	log := s.log.With(sl.Op(op))

	if n, err := s.repo.DeleteExpiredSessions(ctx); err != nil {
		log.Error("failed to delete expired sessions", sl.Err(err))
	} else if n > 0 {
		log.Info("expired sessions deleted", slog.Int64("count", n))
	}

	if n, err := s.repo.PurgeExpiredTokens(ctx); err != nil {
		log.Error("failed to purge expired tokens", sl.Err(err))
	} else if n > 0 {
		log.Info("expired tokens purged", slog.Int64("count", n))
	}

	sent, err := s.SendReminders(ctx)
	if err != nil {
		log.Error("failed to send reminders", sl.Err(err))
		return
	}
	if sent > 0 {
		log.Info("reminders published", slog.Int("count", sent))
	}
}

// SendReminders публикует напоминания о событиях, начинающихся в пределах окна.
// Событие помечается до публикации, поэтому повторный или параллельный проход
// не отправит напоминание дважды.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	const op = "scheduler.SendReminders"

	now := s.now()
	events, err := s.repo.DueReminders(ctx, now, now.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, ev := range events {
		to := emailAttendees(ev.Attendees)
		if len(to) == 0 {
			continue
		}
		marked, err := s.repo.MarkReminderSent(ctx, ev.ID)
		if err != nil {
			s.log.Error("failed to mark reminder", sl.Op(op), slog.Int64("event_id", ev.ID), sl.Err(err))
			continue
		}
		if !marked {
			continue
		}
		if err := s.mailer.SendEmail(ctx, reminderMessage(ev, to)); err != nil {
			s.log.Error("failed to publish reminder", sl.Op(op), slog.Int64("event_id", ev.ID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}

func emailAttendees(attendees []string) []string {
	to := make([]string, 0, len(attendees))
	for _, a := range attendees {
		addr, err := mail.ParseAddress(a)
		if err != nil {
			continue
		}
		to = append(to, addr.Address)
	}
	return to
}

func reminderMessage(ev *models.CalendarEvent, to []string) models.EmailMessage {
	body := fmt.Sprintf("Здравствуйте!\n\nСобытие «%s» начнётся %s.",
		ev.Title, ev.StartsAt.UTC().Format("02.01.2006 15:04 MST"))
	if ev.Location != "" {
		body += "\nМесто: " + ev.Location
	}
	if ev.Description != "" {
		body += "\n\n" + ev.Description
	}
	return models.EmailMessage{
		To:      to,
		Subject: "Напоминание: " + ev.Title,
		Body:    body,
	}
}
