package storage

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const experimentColumns = `id, project_id, name, description, status, started_at, ended_at,
	created_by, created_at, updated_at`

func scanExperiment(row rowScanner) (*models.Experiment, error) {
	var e models.Experiment
	var startedAt, endedAt sql.NullTime
	var createdBy sql.NullInt64
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Name, &e.Description, &e.Status,
		&startedAt, &endedAt, &createdBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		e.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		e.EndedAt = &endedAt.Time
	}
	e.CreatedBy = int64Ptr(createdBy)
	return &e, nil
}

// CreateExperiment создаёт эксперимент в проекте.
func (s *Storage) CreateExperiment(ctx context.Context, projectID, createdBy int64, in models.ExperimentInput) (*models.Experiment, error) {
	const op = "storage.CreateExperiment"

	status := in.Status
	if status == "" {
		status = models.ExperimentPlanned
	}

	var experiment *models.Experiment
	err := s.run(ctx, op, func(ctx context.Context) error {
		e, err := scanExperiment(s.DB.QueryRowContext(ctx, `
			INSERT INTO experiments (project_id, name, description, status, started_at, ended_at, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+experimentColumns,
			projectID, in.Name, in.Description, status, in.StartedAt, in.EndedAt, createdBy))
		experiment = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return experiment, nil
}

// GetExperiment возвращает эксперимент по ID.
func (s *Storage) GetExperiment(ctx context.Context, id int64) (*models.Experiment, error) {
	const op = "storage.GetExperiment"

	var experiment *models.Experiment
	err := s.run(ctx, op, func(ctx context.Context) error {
		e, err := scanExperiment(s.DB.QueryRowContext(ctx,
			`SELECT `+experimentColumns+` FROM experiments WHERE id = $1`, id))
		experiment = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return experiment, nil
}

// ListExperiments возвращает эксперименты проекта.
func (s *Storage) ListExperiments(ctx context.Context, projectID int64) ([]*models.Experiment, error) {
	const op = "storage.ListExperiments"

	var result []*models.Experiment
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+experimentColumns+`
			FROM experiments
			WHERE project_id = $1
			ORDER BY created_at DESC, id DESC`, projectID)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Experiment, 0)
		for rows.Next() {
			e, err := scanExperiment(rows)
			if err != nil {
				return err
			}
			result = append(result, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateExperiment обновляет эксперимент. Пустой статус оставляет текущий.
func (s *Storage) UpdateExperiment(ctx context.Context, id int64, in models.ExperimentInput) (*models.Experiment, error) {
	const op = "storage.UpdateExperiment"

	var experiment *models.Experiment
	err := s.run(ctx, op, func(ctx context.Context) error {
		e, err := scanExperiment(s.DB.QueryRowContext(ctx, `
			UPDATE experiments
			SET name = $2,
			    description = $3,
			    status = COALESCE(NULLIF($4, ''), status),
			    started_at = $5,
			    ended_at = $6,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+experimentColumns,
			id, in.Name, in.Description, in.Status, in.StartedAt, in.EndedAt))
		experiment = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return experiment, nil
}

// DeleteExperiment удаляет эксперимент вместе с его заметками и их вложениями.
func (s *Storage) DeleteExperiment(ctx context.Context, id int64) error {
	const op = "storage.DeleteExperiment"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM experiments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
