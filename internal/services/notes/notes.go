// Package notes содержит бизнес-логику заметок журнала.
package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/lab-notebook/internal/access"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// DefaultLimit и MaxLimit ограничивают размер страницы списка заметок.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Repository: операции хранилища над заметками.
type Repository interface {
	access.ScopeLoader
	CreateNote(ctx context.Context, authorID int64, in models.NoteInput) (*models.Note, error)
	GetNote(ctx context.Context, id int64) (*models.Note, error)
	ListNotes(ctx context.Context, f models.NoteFilter) ([]*models.Note, error)
	UpdateNote(ctx context.Context, id int64, in models.NoteUpdate) (*models.Note, error)
	DeleteNote(ctx context.Context, id int64) error
	GetExperiment(ctx context.Context, id int64) (*models.Experiment, error)
}

// Service: сервис заметок.
type Service struct {
	repo Repository
}

// New создает новый экземпляр Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// AuthorOf возвращает автора заметки или 0, если автор удалён.
func AuthorOf(n *models.Note) int64 {
	if n.AuthorID == nil {
		return 0
	}
	return *n.AuthorID
}

// checkExperiment проверяет, что эксперимент существует и принадлежит проекту заметки.
func (s *Service) checkExperiment(ctx context.Context, projectID int64, experimentID *int64) error {
	if experimentID == nil {
		return nil
	}
	e, err := s.repo.GetExperiment(ctx, *experimentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NewValidation("experiment_id", "experiment not found")
		}
		return err
	}
	if e.ProjectID != projectID {
		return apperr.NewValidation("experiment_id", "experiment belongs to another project")
	}
	return nil
}

// Create создаёт заметку от имени actor.
func (s *Service) Create(ctx context.Context, actor models.Actor, in models.NoteInput) (*models.Note, error) {
	const op = "notes.Create"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindNote, in.ProjectID, 0, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkExperiment(ctx, in.ProjectID, in.ExperimentID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := s.repo.CreateNote(ctx, actor.UserID, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// List возвращает заметки проекта, опционально только одного эксперимента.
func (s *Service) List(ctx context.Context, actor models.Actor, f models.NoteFilter) ([]*models.Note, error) {
	const op = "notes.List"

	if f.ProjectID <= 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("project_id", "is required"))
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindNote, f.ProjectID, 0, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repo.ListNotes(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает заметку.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Note, error) {
	const op = "notes.Get"
	n, err := s.Load(ctx, actor, id, access.Read)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Update изменяет заголовок, содержимое и привязку к эксперименту.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64, in models.NoteUpdate) (*models.Note, error) {
	const op = "notes.Update"

	current, err := s.Load(ctx, actor, id, access.Write)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkExperiment(ctx, current.ProjectID, in.ExperimentID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := s.repo.UpdateNote(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Delete удаляет заметку вместе с вложениями.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "notes.Delete"
	if _, err := s.Load(ctx, actor, id, access.Write); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load загружает заметку и проверяет право action на неё.
func (s *Service) Load(ctx context.Context, actor models.Actor, id int64, action access.Action) (*models.Note, error) {
	n, err := s.repo.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := access.Authorize(ctx, s.repo, actor, access.KindNote, n.ProjectID, AuthorOf(n), action); err != nil {
		return nil, err
	}
	return n, nil
}
