package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const eventColumns = `e.id, e.created_by, e.project_id, e.experiment_id, e.title, e.description, e.location,
	e.starts_at, e.ends_at, e.all_day, e.attendees, e.status, e.reminder_sent_at, e.created_at, e.updated_at`

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	var projectID, experimentID sql.NullInt64
	var attendees []byte
	var reminderSentAt sql.NullTime
	if err := row.Scan(&e.ID, &e.CreatedBy, &projectID, &experimentID, &e.Title, &e.Description,
		&e.Location, &e.StartsAt, &e.EndsAt, &e.AllDay, &attendees, &e.Status, &reminderSentAt,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attendees, &e.Attendees); err != nil {
		return nil, err
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	e.ProjectID = int64Ptr(projectID)
	e.ExperimentID = int64Ptr(experimentID)
	if reminderSentAt.Valid {
		e.ReminderSentAt = &reminderSentAt.Time
	}
	return &e, nil
}

func attendeesJSON(attendees []string) (string, error) {
	if attendees == nil {
		attendees = []string{}
	}
	b, err := json.Marshal(attendees)
	return string(b), err
}

// CreateEvent сохраняет событие календаря.
func (s *Storage) CreateEvent(ctx context.Context, createdBy int64, in models.EventInput) (*models.CalendarEvent, error) {
	const op = "storage.CreateEvent"

	attendees, err := attendeesJSON(in.Attendees)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.EventScheduled
	}

	var event *models.CalendarEvent
	err = s.run(ctx, op, func(ctx context.Context) error {
		ev, err := scanEvent(s.DB.QueryRowContext(ctx, `
			WITH e AS (
				INSERT INTO calendar_events (created_by, project_id, experiment_id, title, description,
				                             location, starts_at, ends_at, all_day, attendees, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				RETURNING *
			)
			SELECT `+eventColumns+` FROM e`,
			createdBy, nullInt64(in.ProjectID), nullInt64(in.ExperimentID), in.Title, in.Description,
			in.Location, in.StartsAt, in.EndsAt, in.AllDay, attendees, status))
		event = ev
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetEvent возвращает событие по ID.
func (s *Storage) GetEvent(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	const op = "storage.GetEvent"

	var event *models.CalendarEvent
	err := s.run(ctx, op, func(ctx context.Context) error {
		ev, err := scanEvent(s.DB.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM calendar_events e WHERE e.id = $1`, id))
		event = ev
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents возвращает события, видимые пользователю: созданные им и привязанные
// к проектам, которыми он владеет или в которых участвует. При all=true видны все события.
func (s *Storage) ListEvents(ctx context.Context, userID int64, all bool, f models.EventFilter) ([]*models.CalendarEvent, error) {
	const op = "storage.ListEvents"

	var from, to sql.NullTime
	if f.From != nil {
		from = sql.NullTime{Time: *f.From, Valid: true}
	}
	if f.To != nil {
		to = sql.NullTime{Time: *f.To, Valid: true}
	}

	var result []*models.CalendarEvent
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+eventColumns+`
			FROM calendar_events e
			LEFT JOIN projects p ON p.id = e.project_id
			WHERE ($2 OR e.created_by = $1 OR p.owner_id = $1
			       OR EXISTS (SELECT 1 FROM project_collaborators c
			                  WHERE c.project_id = e.project_id AND c.user_id = $1))
			  AND ($3::TIMESTAMPTZ IS NULL OR e.ends_at >= $3)
			  AND ($4::TIMESTAMPTZ IS NULL OR e.starts_at < $4)
			  AND ($5::BIGINT IS NULL OR e.project_id = $5)
			ORDER BY e.starts_at, e.id`,
			userID, all, from, to, nullInt64(f.ProjectID))
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.CalendarEvent, 0)
		for rows.Next() {
			ev, err := scanEvent(rows)
			if err != nil {
				return err
			}
			result = append(result, ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateEvent обновляет событие. Изменение времени начала сбрасывает отметку о напоминании.
func (s *Storage) UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.CalendarEvent, error) {
	const op = "storage.UpdateEvent"

	attendees, err := attendeesJSON(in.Attendees)
	if err != nil {
		return nil, err
	}

	var event *models.CalendarEvent
	err = s.run(ctx, op, func(ctx context.Context) error {
		ev, err := scanEvent(s.DB.QueryRowContext(ctx, `
			WITH e AS (
				UPDATE calendar_events
				SET project_id = $2, experiment_id = $3, title = $4, description = $5, location = $6,
				    reminder_sent_at = CASE WHEN starts_at = $7 THEN reminder_sent_at END,
				    starts_at = $7, ends_at = $8, all_day = $9, attendees = $10,
				    status = COALESCE(NULLIF($11, ''), status),
				    updated_at = NOW()
				WHERE id = $1
				RETURNING *
			)
			SELECT `+eventColumns+` FROM e`,
			id, nullInt64(in.ProjectID), nullInt64(in.ExperimentID), in.Title, in.Description, in.Location,
			in.StartsAt, in.EndsAt, in.AllDay, attendees, in.Status))
		event = ev
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteEvent удаляет событие.
func (s *Storage) DeleteEvent(ctx context.Context, id int64) error {
	const op = "storage.DeleteEvent"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}

// DueReminders возвращает запланированные события, начинающиеся в [from, to),
// по которым напоминание ещё не отправлялось.
func (s *Storage) DueReminders(ctx context.Context, from, to time.Time) ([]*models.CalendarEvent, error) {
	const op = "storage.DueReminders"

	var result []*models.CalendarEvent
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+eventColumns+`
			FROM calendar_events e
			WHERE e.status = 'scheduled'
			  AND e.reminder_sent_at IS NULL
			  AND e.starts_at >= $1 AND e.starts_at < $2
			ORDER BY e.starts_at, e.id`, from, to)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.CalendarEvent, 0)
		for rows.Next() {
			ev, err := scanEvent(rows)
			if err != nil {
				return err
			}
			result = append(result, ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkReminderSent отмечает, что напоминание отправлено. Возвращает false,
// если отметка уже стояла, так что каждое событие напоминается один раз.
func (s *Storage) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	const op = "storage.MarkReminderSent"

	var marked bool
	err := s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `
			UPDATE calendar_events SET reminder_sent_at = NOW()
			WHERE id = $1 AND reminder_sent_at IS NULL`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		marked = n == 1
		return err
	})
	return marked, err
}
