// Package models содержит доменные структуры лабораторного журнала:
// пользователей, проекты, эксперименты, заметки, вложения, отчёты и события календаря.
// Структуры используются в бизнес‑логике, хранилище и в JSON‑ответах.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	IsAdmin       bool      `json:"is_admin"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUser: данные для создания пользователя в хранилище.
type NewUser struct {
	Email                 string
	Name                  string
	PasswordHash          string
	VerificationTokenHash string
	VerificationExpiresAt time.Time
}

// UserUpdate: изменяемые поля профиля. nil означает «не менять».
type UserUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	IsAdmin *bool   `json:"is_admin,omitempty"`
}
