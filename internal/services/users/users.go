// Package users содержит администрирование пользователей.
package users

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Repository: операции хранилища над пользователями.
type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Service: сервис пользователей.
type Service struct {
	repo Repository
}

// New создает новый экземпляр Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List возвращает страницу пользователей. Только для администратора.
func (s *Service) List(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.User, error) {
	const op = "users.List"

	if !actor.IsAdmin {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset = max(offset, 0)

	list, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает пользователя себе самому или администратору.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.User, error) {
	const op = "users.Get"

	if !actor.IsAdmin && actor.UserID != id {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Update меняет имя (сам пользователь или администратор) и признак администратора (только администратор).
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64, upd models.UserUpdate) (*models.User, error) {
	const op = "users.Update"

	if !actor.IsAdmin && actor.UserID != id {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
	}
	if upd.IsAdmin != nil {
		if !actor.IsAdmin {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
		}
		if actor.UserID == id && !*upd.IsAdmin {
			return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("is_admin", "cannot revoke own admin role"))
		}
	}
	u, err := s.repo.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Delete удаляет пользователя вместе с его проектами и сессиями. Только для администратора, не себя.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "users.Delete"

	if !actor.IsAdmin {
		return fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
	}
	if actor.UserID == id {
		return fmt.Errorf("%s: %w", op, apperr.NewValidation("id", "cannot delete yourself"))
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
