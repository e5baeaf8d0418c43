package storage

import (
	"context"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

func scanCollaborator(row rowScanner) (*models.Collaborator, error) {
	var c models.Collaborator
	if err := row.Scan(&c.ProjectID, &c.UserID, &c.Email, &c.Name, &c.Role, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddCollaborator выдаёт пользователю роль в проекте. Повторное добавление даёт ErrConflict.
func (s *Storage) AddCollaborator(ctx context.Context, projectID, userID int64, role string) (*models.Collaborator, error) {
	const op = "storage.AddCollaborator"

	var collaborator *models.Collaborator
	err := s.run(ctx, op, func(ctx context.Context) error {
		c, err := scanCollaborator(s.DB.QueryRowContext(ctx, `
			WITH ins AS (
				INSERT INTO project_collaborators (project_id, user_id, role)
				VALUES ($1, $2, $3)
				RETURNING project_id, user_id, role, created_at
			)
			SELECT ins.project_id, ins.user_id, u.email, u.name, ins.role, ins.created_at
			FROM ins JOIN users u ON u.id = ins.user_id`, projectID, userID, role))
		collaborator = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return collaborator, nil
}

// ListCollaborators возвращает соавторов проекта.
func (s *Storage) ListCollaborators(ctx context.Context, projectID int64) ([]*models.Collaborator, error) {
	const op = "storage.ListCollaborators"

	var result []*models.Collaborator
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT c.project_id, c.user_id, u.email, u.name, c.role, c.created_at
			FROM project_collaborators c
			JOIN users u ON u.id = c.user_id
			WHERE c.project_id = $1
			ORDER BY c.created_at, c.user_id`, projectID)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Collaborator, 0)
		for rows.Next() {
			c, err := scanCollaborator(rows)
			if err != nil {
				return err
			}
			result = append(result, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCollaboratorRole меняет роль соавтора.
func (s *Storage) UpdateCollaboratorRole(ctx context.Context, projectID, userID int64, role string) (*models.Collaborator, error) {
	const op = "storage.UpdateCollaboratorRole"

	var collaborator *models.Collaborator
	err := s.run(ctx, op, func(ctx context.Context) error {
		c, err := scanCollaborator(s.DB.QueryRowContext(ctx, `
			WITH upd AS (
				UPDATE project_collaborators SET role = $3
				WHERE project_id = $1 AND user_id = $2
				RETURNING project_id, user_id, role, created_at
			)
			SELECT upd.project_id, upd.user_id, u.email, u.name, upd.role, upd.created_at
			FROM upd JOIN users u ON u.id = upd.user_id`, projectID, userID, role))
		collaborator = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return collaborator, nil
}

// RemoveCollaborator отзывает роль пользователя в проекте.
func (s *Storage) RemoveCollaborator(ctx context.Context, projectID, userID int64) error {
	const op = "storage.RemoveCollaborator"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx,
			`DELETE FROM project_collaborators WHERE project_id = $1 AND user_id = $2`, projectID, userID)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
