// Package apperr описывает таксономию ошибок приложения. Сервисы и хранилище
// возвращают эти ошибки (обёрнутые через %w), а HTTP-слой превращает их в коды ответа.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated: нет токена, токен недействителен или неверные учётные данные (401).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: у пользователя недостаточно прав (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: сущность не найдена (404).
	ErrNotFound = errors.New("not found")
	// ErrConflict: нарушение уникальности (409).
	ErrConflict = errors.New("already exists")
	// ErrTransient: инфраструктурная ошибка, не исправленная повторными попытками (500).
	ErrTransient = errors.New("transient infrastructure error")
	// ErrTooLarge: тело запроса превышает допустимый размер (413).
	ErrTooLarge = errors.New("payload too large")
	// ErrRateLimited: клиент превысил лимит запросов (429).
	ErrRateLimited = errors.New("too many requests")
)

// ValidationError: ошибка входных данных с детализацией по полям (400).
type ValidationError struct {
	Fields map[string]string
}

// NewValidation создаёт ValidationError для одного поля.
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// IsValidation сообщает, является ли err (или любая обёрнутая ошибка) ValidationError,
// и возвращает её.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// transientError помечает исходную ошибку как ErrTransient, не теряя её в цепочке.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{e.err, ErrTransient} }

// Transient оборачивает err так, что errors.Is(err, ErrTransient) и errors.Is(err, исходная) истинны.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}
