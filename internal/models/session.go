package models

import "time"

// UserSession: запись сессии, выпущенной при входе. Токен считается
// отозванным, как только запись удалена.
type UserSession struct {
	ID        string
	UserID    int64
	UserAgent string
	IP        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Actor: аутентифицированный пользователь текущего запроса.
type Actor struct {
	UserID    int64
	IsAdmin   bool
	SessionID string
}
