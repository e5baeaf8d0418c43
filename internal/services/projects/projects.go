// Package projects содержит бизнес-логику проектов и их соавторов.
// Чтение проекта кэшируется в Redis и сбрасывается при изменении или удалении.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/access"
	"github.com/magabrotheeeer/lab-notebook/internal/cache"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Repository: операции хранилища над проектами и соавторами.
type Repository interface {
	access.ScopeLoader
	CreateProject(ctx context.Context, ownerID int64, in models.ProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context, userID int64, all bool) ([]*models.Project, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	AddCollaborator(ctx context.Context, projectID, userID int64, role string) (*models.Collaborator, error)
	ListCollaborators(ctx context.Context, projectID int64) ([]*models.Collaborator, error)
	UpdateCollaboratorRole(ctx context.Context, projectID, userID int64, role string) (*models.Collaborator, error)
	RemoveCollaborator(ctx context.Context, projectID, userID int64) error

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Cache: кэш чтения проектов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service: сервис проектов.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, log: log}
}

// Create создаёт проект, владельцем которого становится actor.
func (s *Service) Create(ctx context.Context, actor models.Actor, in models.ProjectInput) (*models.Project, error) {
	const op = "projects.Create"
	p, err := s.repo.CreateProject(ctx, actor.UserID, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// List возвращает собственные проекты и проекты, где actor соавтор. Администратор видит все.
func (s *Service) List(ctx context.Context, actor models.Actor) ([]*models.Project, error) {
	const op = "projects.List"
	list, err := s.repo.ListProjects(ctx, actor.UserID, actor.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает проект, если actor может его читать.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Project, error) {
	const op = "projects.Get"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindProject, id, 0, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := cache.ProjectKey(id)
	var cached models.Project
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("project cache read failed", sl.Op(op), slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, p, s.ttl); err != nil {
		s.log.Warn("project cache write failed", sl.Op(op), slog.String("key", key), sl.Err(err))
	}
	return p, nil
}

// Update меняет название и описание проекта.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64, in models.ProjectInput) (*models.Project, error) {
	const op = "projects.Update"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindProject, id, 0, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.UpdateProject(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, id)
	return p, nil
}

// Delete удаляет проект со всеми экспериментами, заметками, вложениями и отчётами.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "projects.Delete"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindProject, id, 0, access.Manage); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, op string, id int64) {
	if err := s.cache.Invalidate(ctx, cache.ProjectKey(id)); err != nil {
		s.log.Warn("project cache invalidation failed", sl.Op(op), slog.Int64("project_id", id), sl.Err(err))
	}
}

// ListCollaborators возвращает соавторов проекта.
func (s *Service) ListCollaborators(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Collaborator, error) {
	const op = "projects.ListCollaborators"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindProject, projectID, 0, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repo.ListCollaborators(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// AddCollaborator выдаёт пользователю роль в проекте. Пользователь задаётся id или e-mail.
func (s *Service) AddCollaborator(ctx context.Context, actor models.Actor, projectID int64,
	in models.CollaboratorInput) (*models.Collaborator, error) {
	const op = "projects.AddCollaborator"

	scope, err := access.Authorize(ctx, s.repo, actor, access.KindProject, projectID, 0, access.Manage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	role := access.NormalizeRole(in.Role)
	if role == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("role", "must be viewer or editor"))
	}

	user, err := s.resolveUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.ID == scope.OwnerID {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("user_id", "project owner cannot be a collaborator"))
	}

	c, err := s.repo.AddCollaborator(ctx, projectID, user.ID, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *Service) resolveUser(ctx context.Context, in models.CollaboratorInput) (*models.User, error) {
	var (
		user  *models.User
		err   error
		field string
	)
	switch {
	case in.UserID > 0:
		field = "user_id"
		user, err = s.repo.GetUserByID(ctx, in.UserID)
	case strings.TrimSpace(in.Email) != "":
		field = "email"
		user, err = s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	default:
		return nil, apperr.NewValidation("user_id", "user_id or email is required")
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NewValidation(field, "user not found")
	}
	return user, err
}

// UpdateCollaboratorRole меняет роль соавтора.
func (s *Service) UpdateCollaboratorRole(ctx context.Context, actor models.Actor, projectID, userID int64,
	role string) (*models.Collaborator, error) {
	const op = "projects.UpdateCollaboratorRole"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindProject, projectID, 0, access.Manage); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	normalized := access.NormalizeRole(role)
	if normalized == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("role", "must be viewer or editor"))
	}
	c, err := s.repo.UpdateCollaboratorRole(ctx, projectID, userID, normalized)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// RemoveCollaborator отзывает роль. Соавтор может покинуть проект сам.
func (s *Service) RemoveCollaborator(ctx context.Context, actor models.Actor, projectID, userID int64) error {
	const op = "projects.RemoveCollaborator"

	action := access.Manage
	if userID == actor.UserID {
		action = access.Read
	}
	if _, err := access.Authorize(ctx, s.repo, actor, access.KindProject, projectID, 0, action); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.RemoveCollaborator(ctx, projectID, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
