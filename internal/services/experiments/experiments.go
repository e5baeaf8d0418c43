// Package experiments содержит бизнес-логику экспериментов проекта.
package experiments

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/lab-notebook/internal/access"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Repository: операции хранилища над экспериментами.
type Repository interface {
	access.ScopeLoader
	CreateExperiment(ctx context.Context, projectID, createdBy int64, in models.ExperimentInput) (*models.Experiment, error)
	GetExperiment(ctx context.Context, id int64) (*models.Experiment, error)
	ListExperiments(ctx context.Context, projectID int64) ([]*models.Experiment, error)
	UpdateExperiment(ctx context.Context, id int64, in models.ExperimentInput) (*models.Experiment, error)
	DeleteExperiment(ctx context.Context, id int64) error
}

// Service: сервис экспериментов.
type Service struct {
	repo Repository
}

// New создает новый экземпляр Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func validatePeriod(in models.ExperimentInput) error {
	if in.StartedAt != nil && in.EndedAt != nil && in.EndedAt.Before(*in.StartedAt) {
		return apperr.NewValidation("ended_at", "must not be before started_at")
	}
	return nil
}

func createdBy(e *models.Experiment) int64 {
	if e.CreatedBy == nil {
		return 0
	}
	return *e.CreatedBy
}

// Create создаёт эксперимент в проекте.
func (s *Service) Create(ctx context.Context, actor models.Actor, projectID int64,
	in models.ExperimentInput) (*models.Experiment, error) {
	const op = "experiments.Create"

	if err := validatePeriod(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := access.Authorize(ctx, s.repo, actor, access.KindExperiment, projectID, 0, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e, err := s.repo.CreateExperiment(ctx, projectID, actor.UserID, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// List возвращает эксперименты проекта.
func (s *Service) List(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Experiment, error) {
	const op = "experiments.List"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindExperiment, projectID, 0, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repo.ListExperiments(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает эксперимент.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Experiment, error) {
	const op = "experiments.Get"
	e, err := s.load(ctx, actor, id, access.Read)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// Update изменяет эксперимент. Пустой статус сохраняет текущий.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64,
	in models.ExperimentInput) (*models.Experiment, error) {
	const op = "experiments.Update"

	if err := validatePeriod(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.load(ctx, actor, id, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e, err := s.repo.UpdateExperiment(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// Delete удаляет эксперимент вместе с его заметками.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "experiments.Delete"
	if _, err := s.load(ctx, actor, id, access.Write); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteExperiment(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, actor models.Actor, id int64, action access.Action) (*models.Experiment, error) {
	e, err := s.repo.GetExperiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := access.Authorize(ctx, s.repo, actor, access.KindExperiment, e.ProjectID, createdBy(e), action); err != nil {
		return nil, err
	}
	return e, nil
}
