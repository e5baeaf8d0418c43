// Package reports собирает PDF-отчёты из выбранных заметок проекта и хранит их.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/access"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/pdfreport"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// ErrForeignImage: изображение ссылается на вложение другого проекта или внешний ресурс.
var ErrForeignImage = errors.New("image outside of report project")

var attachmentPath = regexp.MustCompile(`^/api/attachments/(\d+)/download$`)

// Repository: операции хранилища, нужные для отчётов.
type Repository interface {
	access.ScopeLoader
	GetExperiment(ctx context.Context, id int64) (*models.Experiment, error)
	GetNotesByIDs(ctx context.Context, projectID int64, ids []int64) ([]*models.Note, error)
	GetNote(ctx context.Context, id int64) (*models.Note, error)
	GetAttachment(ctx context.Context, id int64, withData bool) (*models.Attachment, error)

	CreateReport(ctx context.Context, r models.Report) (*models.Report, error)
	GetReport(ctx context.Context, id int64, withPDF bool) (*models.Report, error)
	ListReports(ctx context.Context, projectID int64) ([]*models.Report, error)
	DeleteReport(ctx context.Context, id int64) error
}

// Service: сервис отчётов.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Create генерирует PDF по выбранным заметкам и сохраняет его.
// Все заметки должны принадлежать проекту отчёта; порядок заметок сохраняется.
func (s *Service) Create(ctx context.Context, actor models.Actor, in models.ReportInput) (*models.Report, error) {
	const op = "reports.Create"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindReport, in.ProjectID, 0, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := uniqueIDs(in.NoteIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("note_ids", "at least one note is required"))
	}
	notes, err := s.repo.GetNotesByIDs(ctx, in.ProjectID, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(notes) != len(ids) {
		return nil, fmt.Errorf("%s: %w", op,
			apperr.NewValidation("note_ids", "unknown note or note of another project"))
	}
	byID := make(map[int64]*models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	doc := pdfreport.Document{
		Title:       in.Title,
		Subtitle:    in.Subtitle,
		Images:      in.Options.IncludeImages,
		GeneratedAt: s.now(),
		Resolve:     s.resolver(ctx, in.ProjectID),
	}
	if in.ExperimentID != nil {
		e, err := s.repo.GetExperiment(ctx, *in.ExperimentID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if e == nil || e.ProjectID != in.ProjectID {
			return nil, fmt.Errorf("%s: %w", op,
				apperr.NewValidation("experiment_id", "experiment does not belong to the project"))
		}
		if in.Options.IncludeExperiment {
			doc.Experiment = &pdfreport.Experiment{
				Name:        e.Name,
				Status:      e.Status,
				Description: e.Description,
				StartedAt:   e.StartedAt,
				EndedAt:     e.EndedAt,
			}
		}
	}
	for _, id := range ids {
		n := byID[id]
		doc.Notes = append(doc.Notes, pdfreport.Note{
			Title:     n.Title,
			Author:    n.AuthorName,
			CreatedAt: n.CreatedAt,
			HTML:      n.Content,
		})
	}

	res, err := pdfreport.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	author := actor.UserID
	report, err := s.repo.CreateReport(ctx, models.Report{
		ProjectID:    in.ProjectID,
		ExperimentID: in.ExperimentID,
		AuthorID:     &author,
		Title:        in.Title,
		Subtitle:     in.Subtitle,
		Options:      in.Options,
		NoteIDs:      ids,
		PageCount:    res.Pages,
		SizeBytes:    int64(len(res.PDF)),
		PDF:          res.PDF,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("report generated", sl.Op(op),
		slog.Int64("report_id", report.ID), slog.Int("pages", res.Pages), slog.Int("notes", len(ids)))
	return report, nil
}

// resolver загружает изображения вложений. Вложение должно принадлежать заметке того же проекта.
func (s *Service) resolver(ctx context.Context, projectID int64) func(src string) ([]byte, error) {
	return func(src string) ([]byte, error) {
		u, err := url.Parse(src)
		if err != nil {
			return nil, err
		}
		m := attachmentPath.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%s: %w", src, ErrForeignImage)
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, err
		}
		a, err := s.repo.GetAttachment(ctx, id, true)
		if err != nil {
			return nil, err
		}
		n, err := s.repo.GetNote(ctx, a.NoteID)
		if err != nil {
			return nil, err
		}
		if n.ProjectID != projectID {
			return nil, fmt.Errorf("attachment %d: %w", id, ErrForeignImage)
		}
		return a.Data, nil
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// List возвращает отчёты проекта без содержимого.
func (s *Service) List(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Report, error) {
	const op = "reports.List"

	if _, err := access.Authorize(ctx, s.repo, actor, access.KindReport, projectID, 0, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repo.ListReports(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает отчёт; при withPDF — вместе с документом.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64, withPDF bool) (*models.Report, error) {
	const op = "reports.Get"
	r, err := s.load(ctx, actor, id, withPDF, access.Read)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// Delete удаляет отчёт.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "reports.Delete"
	if _, err := s.load(ctx, actor, id, false, access.Write); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, actor models.Actor, id int64, withPDF bool,
	action access.Action) (*models.Report, error) {
	r, err := s.repo.GetReport(ctx, id, withPDF)
	if err != nil {
		return nil, err
	}
	var author int64
	if r.AuthorID != nil {
		author = *r.AuthorID
	}
	if _, err := access.Authorize(ctx, s.repo, actor, access.KindReport, r.ProjectID, author, action); err != nil {
		return nil, err
	}
	return r, nil
}
