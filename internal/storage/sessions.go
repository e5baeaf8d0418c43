package storage

import (
	"context"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// CreateSession сохраняет запись сессии.
func (s *Storage) CreateSession(ctx context.Context, sess models.UserSession) error {
	const op = "storage.CreateSession"
	return s.run(ctx, op, func(ctx context.Context) error {
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO user_sessions (id, user_id, user_agent, ip, expires_at)
			VALUES ($1, $2, $3, $4, $5)`,
			sess.ID, sess.UserID, sess.UserAgent, sess.IP, sess.ExpiresAt)
		return err
	})
}

// GetActiveSession возвращает неистёкшую сессию по ID или ErrNotFound.
func (s *Storage) GetActiveSession(ctx context.Context, id string) (*models.UserSession, error) {
	const op = "storage.GetActiveSession"

	var sess models.UserSession
	err := s.run(ctx, op, func(ctx context.Context) error {
		return s.DB.QueryRowContext(ctx, `
			SELECT id, user_id, user_agent, ip, created_at, expires_at
			FROM user_sessions
			WHERE id = $1 AND expires_at > NOW()`, id).
			Scan(&sess.ID, &sess.UserID, &sess.UserAgent, &sess.IP, &sess.CreatedAt, &sess.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession удаляет одну сессию. Отсутствие записи ошибкой не считается.
func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	const op = "storage.DeleteSession"
	return s.run(ctx, op, func(ctx context.Context) error {
		_, err := s.DB.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
		return err
	})
}

// DeleteExpiredSessions удаляет истёкшие сессии.
func (s *Storage) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "storage.DeleteExpiredSessions"

	var n int64
	err := s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= NOW()`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
