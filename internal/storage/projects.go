package storage

import (
	"context"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const projectColumns = `id, owner_id, name, description, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject создаёт проект, принадлежащий ownerID.
func (s *Storage) CreateProject(ctx context.Context, ownerID int64, in models.ProjectInput) (*models.Project, error) {
	const op = "storage.CreateProject"

	var project *models.Project
	err := s.run(ctx, op, func(ctx context.Context) error {
		p, err := scanProject(s.DB.QueryRowContext(ctx, `
			INSERT INTO projects (owner_id, name, description)
			VALUES ($1, $2, $3)
			RETURNING `+projectColumns, ownerID, in.Name, in.Description))
		project = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject возвращает проект по ID.
func (s *Storage) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	const op = "storage.GetProject"

	var project *models.Project
	err := s.run(ctx, op, func(ctx context.Context) error {
		p, err := scanProject(s.DB.QueryRowContext(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
		project = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects возвращает проекты, которыми пользователь владеет или в которых он соавтор.
// При all=true возвращаются все проекты.
func (s *Storage) ListProjects(ctx context.Context, userID int64, all bool) ([]*models.Project, error) {
	const op = "storage.ListProjects"

	var result []*models.Project
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+projectColumns+`
			FROM projects p
			WHERE $2
			   OR p.owner_id = $1
			   OR EXISTS (SELECT 1 FROM project_collaborators c
			              WHERE c.project_id = p.id AND c.user_id = $1)
			ORDER BY p.updated_at DESC, p.id DESC`, userID, all)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Project, 0)
		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			result = append(result, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProject обновляет имя и описание проекта.
func (s *Storage) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (*models.Project, error) {
	const op = "storage.UpdateProject"

	var project *models.Project
	err := s.run(ctx, op, func(ctx context.Context) error {
		p, err := scanProject(s.DB.QueryRowContext(ctx, `
			UPDATE projects
			SET name = $2, description = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+projectColumns, id, in.Name, in.Description))
		project = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject удаляет проект вместе с экспериментами, заметками, вложениями,
// соавторами и отчётами (ON DELETE CASCADE).
func (s *Storage) DeleteProject(ctx context.Context, id int64) error {
	const op = "storage.DeleteProject"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}

// ProjectScope одним запросом возвращает владельца проекта и роль userID в нём.
func (s *Storage) ProjectScope(ctx context.Context, projectID, userID int64) (*models.ProjectScope, error) {
	const op = "storage.ProjectScope"

	var scope models.ProjectScope
	err := s.run(ctx, op, func(ctx context.Context) error {
		return s.DB.QueryRowContext(ctx, `
			SELECT p.id, p.owner_id, COALESCE(c.role, '')
			FROM projects p
			LEFT JOIN project_collaborators c
			       ON c.project_id = p.id AND c.user_id = $2
			WHERE p.id = $1`, projectID, userID).
			Scan(&scope.ProjectID, &scope.OwnerID, &scope.Role)
	})
	if err != nil {
		return nil, err
	}
	return &scope, nil
}
