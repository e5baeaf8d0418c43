package storage

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const noteColumns = `n.id, n.project_id, n.experiment_id, n.author_id, COALESCE(u.name, ''),
	n.title, n.content, n.created_at, n.updated_at`

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	var experimentID, authorID sql.NullInt64
	if err := row.Scan(&n.ID, &n.ProjectID, &experimentID, &authorID, &n.AuthorName,
		&n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.ExperimentID = int64Ptr(experimentID)
	n.AuthorID = int64Ptr(authorID)
	return &n, nil
}

// CreateNote сохраняет заметку. Эксперимент из другого проекта отклоняется
// составным внешним ключом и возвращается как ошибка валидации.
func (s *Storage) CreateNote(ctx context.Context, authorID int64, in models.NoteInput) (*models.Note, error) {
	const op = "storage.CreateNote"

	var note *models.Note
	err := s.run(ctx, op, func(ctx context.Context) error {
		n, err := scanNote(s.DB.QueryRowContext(ctx, `
			WITH n AS (
				INSERT INTO notes (project_id, experiment_id, author_id, title, content)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING *
			)
			SELECT `+noteColumns+`
			FROM n LEFT JOIN users u ON u.id = n.author_id`,
			in.ProjectID, nullInt64(in.ExperimentID), authorID, in.Title, in.Content))
		note = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetNote возвращает заметку по ID вместе с именем автора.
func (s *Storage) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	const op = "storage.GetNote"

	var note *models.Note
	err := s.run(ctx, op, func(ctx context.Context) error {
		n, err := scanNote(s.DB.QueryRowContext(ctx, `
			SELECT `+noteColumns+`
			FROM notes n LEFT JOIN users u ON u.id = n.author_id
			WHERE n.id = $1`, id))
		note = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes возвращает заметки проекта, опционально отфильтрованные по эксперименту.
func (s *Storage) ListNotes(ctx context.Context, f models.NoteFilter) ([]*models.Note, error) {
	const op = "storage.ListNotes"

	var result []*models.Note
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+noteColumns+`
			FROM notes n LEFT JOIN users u ON u.id = n.author_id
			WHERE n.project_id = $1
			  AND ($2::BIGINT IS NULL OR n.experiment_id = $2)
			ORDER BY n.created_at DESC, n.id DESC
			LIMIT $3 OFFSET $4`,
			f.ProjectID, nullInt64(f.ExperimentID), f.Limit, f.Offset)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Note, 0)
		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				return err
			}
			result = append(result, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetNotesByIDs возвращает заметки проекта из списка ids в хронологическом порядке.
// Заметки других проектов молча пропускаются.
func (s *Storage) GetNotesByIDs(ctx context.Context, projectID int64, ids []int64) ([]*models.Note, error) {
	const op = "storage.GetNotesByIDs"

	var result []*models.Note
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+noteColumns+`
			FROM notes n LEFT JOIN users u ON u.id = n.author_id
			WHERE n.project_id = $1 AND n.id = ANY($2)
			ORDER BY n.created_at, n.id`, projectID, ids)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Note, 0, len(ids))
		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				return err
			}
			result = append(result, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateNote обновляет заголовок, содержимое и эксперимент заметки.
func (s *Storage) UpdateNote(ctx context.Context, id int64, in models.NoteUpdate) (*models.Note, error) {
	const op = "storage.UpdateNote"

	var note *models.Note
	err := s.run(ctx, op, func(ctx context.Context) error {
		n, err := scanNote(s.DB.QueryRowContext(ctx, `
			WITH n AS (
				UPDATE notes
				SET title = $2, content = $3, experiment_id = $4, updated_at = NOW()
				WHERE id = $1
				RETURNING *
			)
			SELECT `+noteColumns+`
			FROM n LEFT JOIN users u ON u.id = n.author_id`,
			id, in.Title, in.Content, nullInt64(in.ExperimentID)))
		note = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote удаляет заметку вместе с вложениями.
func (s *Storage) DeleteNote(ctx context.Context, id int64) error {
	const op = "storage.DeleteNote"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
