// Package access содержит единственный предикат авторизации для проектов
// и их дочерних сущностей.
package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Action: тип операции над ресурсом.
type Action int

const (
	// Read: чтение.
	Read Action = iota
	// Write: создание, изменение и удаление дочерних сущностей.
	Write
	// Manage: удаление проекта и управление соавторами.
	Manage
)

func (a Action) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case Manage:
		return "manage"
	}
	return "unknown"
}

// Kind: тип ресурса. Используется в логах и сообщениях об ошибках.
type Kind string

// Типы ресурсов.
const (
	KindProject    Kind = "project"
	KindExperiment Kind = "experiment"
	KindNote       Kind = "note"
	KindAttachment Kind = "attachment"
	KindReport     Kind = "report"
	KindEvent      Kind = "event"
)

// Actor: пользователь, выполняющий действие.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// Resource описывает проверяемую сущность через отношение к её проекту.
// AuthorID: автор конкретной сущности (0, если неприменимо).
// Role: роль актора в проекте ("" — не соавтор).
type Resource struct {
	Kind     Kind
	OwnerID  int64
	AuthorID int64
	Role     string
}

// Decision: результат проверки.
type Decision bool

const (
	// Deny запрещает действие.
	Deny Decision = false
	// Allow разрешает действие.
	Allow Decision = true
)

// CanAccess решает, может ли actor выполнить action над resource.
func CanAccess(actor Actor, resource Resource, action Action) Decision {
	if actor.IsAdmin {
		return Allow
	}
	if actor.UserID != 0 && actor.UserID == resource.OwnerID {
		return Allow
	}
	if action == Manage {
		return Deny
	}

	role := NormalizeRole(resource.Role)
	if role == "" {
		return Deny
	}
	// автор, сохранивший роль в проекте, управляет своей сущностью
	if resource.AuthorID != 0 && resource.AuthorID == actor.UserID {
		return Allow
	}
	switch role {
	case models.RoleEditor:
		return Allow
	case models.RoleViewer:
		return Decision(action == Read)
	}
	return Deny
}

// FromScope собирает Resource из области видимости проекта.
func FromScope(kind Kind, scope *models.ProjectScope, authorID int64) Resource {
	return Resource{Kind: kind, OwnerID: scope.OwnerID, AuthorID: authorID, Role: scope.Role}
}

// NormalizeRole приводит роль к нижнему регистру и возвращает "" для неизвестных ролей.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case models.RoleViewer, models.RoleEditor:
		return r
	}
	return ""
}

// ScopeLoader загружает область видимости проекта для пользователя.
type ScopeLoader interface {
	ProjectScope(ctx context.Context, projectID, userID int64) (*models.ProjectScope, error)
}

// Authorize загружает область видимости проекта одним запросом и проверяет action.
// При отказе возвращает apperr.ErrForbidden, при отсутствии проекта — apperr.ErrNotFound.
func Authorize(ctx context.Context, loader ScopeLoader, actor models.Actor, kind Kind,
	projectID, authorID int64, action Action) (*models.ProjectScope, error) {
	const op = "access.Authorize"

	scope, err := loader.ProjectScope(ctx, projectID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := Actor{UserID: actor.UserID, IsAdmin: actor.IsAdmin}
	if !CanAccess(a, FromScope(kind, scope, authorID), action) {
		return nil, fmt.Errorf("%s: %s %s %d: %w", op, action, kind, projectID, apperr.ErrForbidden)
	}
	return scope, nil
}
