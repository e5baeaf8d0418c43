package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const userColumns = `id, email, name, password_hash, is_admin, email_verified, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin,
		&u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя. Первый зарегистрированный пользователь
// становится администратором; проверка и вставка выполняются под advisory-блокировкой.
func (s *Storage) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	const op = "storage.CreateUser"

	var user *models.User
	err := s.inTx(ctx, op, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('users.first_admin'))`); err != nil {
			return err
		}
		query := `INSERT INTO users (email, name, password_hash, is_admin,
				      verification_token_hash, verification_expires_at)
				  SELECT $1, $2, $3, NOT EXISTS (SELECT 1 FROM users), $4, $5
				  RETURNING ` + userColumns
		var tokenHash sql.NullString
		var expires sql.NullTime
		if nu.VerificationTokenHash != "" {
			tokenHash = sql.NullString{String: nu.VerificationTokenHash, Valid: true}
			expires = sql.NullTime{Time: nu.VerificationExpiresAt, Valid: true}
		}
		u, err := scanUser(tx.QueryRowContext(ctx, query, nu.Email, nu.Name, nu.PasswordHash, tokenHash, expires))
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID возвращает пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"

	var user *models.User
	err := s.run(ctx, op, func(ctx context.Context) error {
		u, err := scanUser(s.DB.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail возвращает пользователя по e-mail без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	var user *models.User
	err := s.run(ctx, op, func(ctx context.Context) error {
		u, err := scanUser(s.DB.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers возвращает страницу пользователей, упорядоченных по ID.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"

	var result []*models.User
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.User, 0)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			result = append(result, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateUser меняет имя и/или флаг администратора.
func (s *Storage) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	const op = "storage.UpdateUser"

	var name sql.NullString
	if upd.Name != nil {
		name = sql.NullString{String: *upd.Name, Valid: true}
	}
	var isAdmin sql.NullBool
	if upd.IsAdmin != nil {
		isAdmin = sql.NullBool{Bool: *upd.IsAdmin, Valid: true}
	}

	var user *models.User
	err := s.run(ctx, op, func(ctx context.Context) error {
		u, err := scanUser(s.DB.QueryRowContext(ctx, `
			UPDATE users
			SET name = COALESCE($2, name),
			    is_admin = COALESCE($3, is_admin),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, id, name, isAdmin))
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser удаляет пользователя. Его проекты и сессии удаляются каскадно.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage.DeleteUser"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}

// ChangePassword сохраняет новый хеш пароля и удаляет все сессии пользователя.
func (s *Storage) ChangePassword(ctx context.Context, userID int64, passwordHash string) error {
	const op = "storage.ChangePassword"
	return s.inTx(ctx, op, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return err
		}
		if err = affected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
		return err
	})
}

// SetResetToken запоминает хеш токена сброса пароля, заменяя предыдущий.
func (s *Storage) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	const op = "storage.SetResetToken"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx,
			`UPDATE users SET reset_token_hash = $2, reset_expires_at = $3 WHERE id = $1`,
			userID, tokenHash, expiresAt)
		if err != nil {
			return err
		}
		return affected(res)
	})
}

// ConsumeResetToken атомарно гасит действующий токен сброса, устанавливает новый пароль
// и удаляет все сессии пользователя. Повторное или просроченное использование даёт ErrNotFound.
func (s *Storage) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (int64, error) {
	const op = "storage.ConsumeResetToken"

	var userID int64
	err := s.inTx(ctx, op, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE users
			SET password_hash = $2,
			    reset_token_hash = NULL,
			    reset_expires_at = NULL,
			    updated_at = NOW()
			WHERE reset_token_hash = $1 AND reset_expires_at > NOW()
			RETURNING id`, tokenHash, passwordHash).Scan(&userID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// SetVerificationToken запоминает хеш токена подтверждения e-mail.
func (s *Storage) SetVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	const op = "storage.SetVerificationToken"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx,
			`UPDATE users SET verification_token_hash = $2, verification_expires_at = $3 WHERE id = $1`,
			userID, tokenHash, expiresAt)
		if err != nil {
			return err
		}
		return affected(res)
	})
}

// ConsumeVerificationToken подтверждает e-mail по действующему токену.
func (s *Storage) ConsumeVerificationToken(ctx context.Context, tokenHash string) (int64, error) {
	const op = "storage.ConsumeVerificationToken"

	var userID int64
	err := s.run(ctx, op, func(ctx context.Context) error {
		return s.DB.QueryRowContext(ctx, `
			UPDATE users
			SET email_verified = true,
			    verification_token_hash = NULL,
			    verification_expires_at = NULL,
			    updated_at = NOW()
			WHERE verification_token_hash = $1 AND verification_expires_at > NOW()
			RETURNING id`, tokenHash).Scan(&userID)
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// PurgeExpiredTokens стирает просроченные токены сброса и подтверждения.
func (s *Storage) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	const op = "storage.PurgeExpiredTokens"

	var total int64
	err := s.inTx(ctx, op, func(ctx context.Context, tx *sql.Tx) error {
		total = 0
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL
			WHERE reset_expires_at IS NOT NULL AND reset_expires_at <= NOW()`)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		total += n
		res, err = tx.ExecContext(ctx, `
			UPDATE users SET verification_token_hash = NULL, verification_expires_at = NULL
			WHERE verification_expires_at IS NOT NULL AND verification_expires_at <= NOW()`)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
