// Package servicetest содержит заглушки, общие для тестов сервисов.
package servicetest

import (
	"context"
	"io"
	"log/slog"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Scopes реализует access.ScopeLoader по заранее заданным проектам.
// Owners: проект → владелец. Roles: проект → пользователь → роль.
type Scopes struct {
	Owners map[int64]int64
	Roles  map[int64]map[int64]string
}

// ProjectScope возвращает область видимости или apperr.ErrNotFound для неизвестного проекта.
func (s Scopes) ProjectScope(_ context.Context, projectID, userID int64) (*models.ProjectScope, error) {
	owner, ok := s.Owners[projectID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &models.ProjectScope{ProjectID: projectID, OwnerID: owner, Role: s.Roles[projectID][userID]}, nil
}

// Logger возвращает логгер, отбрасывающий записи.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
