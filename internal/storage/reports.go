package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const reportColumns = `id, project_id, experiment_id, author_id, title, subtitle, options, note_ids,
	page_count, size_bytes, created_at`

func scanReport(row rowScanner, withPDF bool) (*models.Report, error) {
	var r models.Report
	var experimentID, authorID sql.NullInt64
	var options, noteIDs []byte
	dest := []any{&r.ID, &r.ProjectID, &experimentID, &authorID, &r.Title, &r.Subtitle,
		&options, &noteIDs, &r.PageCount, &r.SizeBytes, &r.CreatedAt}
	if withPDF {
		dest = append(dest, &r.PDF)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &r.Options); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(noteIDs, &r.NoteIDs); err != nil {
		return nil, err
	}
	r.ExperimentID = int64Ptr(experimentID)
	r.AuthorID = int64Ptr(authorID)
	return &r, nil
}

// CreateReport сохраняет сгенерированный отчёт вместе с PDF.
func (s *Storage) CreateReport(ctx context.Context, r models.Report) (*models.Report, error) {
	const op = "storage.CreateReport"

	options, err := json.Marshal(r.Options)
	if err != nil {
		return nil, err
	}
	if r.NoteIDs == nil {
		r.NoteIDs = []int64{}
	}
	noteIDs, err := json.Marshal(r.NoteIDs)
	if err != nil {
		return nil, err
	}

	var report *models.Report
	err = s.run(ctx, op, func(ctx context.Context) error {
		res, err := scanReport(s.DB.QueryRowContext(ctx, `
			INSERT INTO reports (project_id, experiment_id, author_id, title, subtitle,
			                     options, note_ids, pdf, page_count, size_bytes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+reportColumns,
			r.ProjectID, nullInt64(r.ExperimentID), nullInt64(r.AuthorID), r.Title, r.Subtitle,
			string(options), string(noteIDs), r.PDF, r.PageCount, int64(len(r.PDF))), false)
		report = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetReport возвращает отчёт; при withPDF также содержимое документа.
func (s *Storage) GetReport(ctx context.Context, id int64, withPDF bool) (*models.Report, error) {
	const op = "storage.GetReport"

	columns := reportColumns
	if withPDF {
		columns += ", pdf"
	}
	var report *models.Report
	err := s.run(ctx, op, func(ctx context.Context) error {
		r, err := scanReport(s.DB.QueryRowContext(ctx,
			`SELECT `+columns+` FROM reports WHERE id = $1`, id), withPDF)
		report = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports возвращает отчёты проекта без содержимого.
func (s *Storage) ListReports(ctx context.Context, projectID int64) ([]*models.Report, error) {
	const op = "storage.ListReports"

	var result []*models.Report
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+reportColumns+`
			FROM reports
			WHERE project_id = $1
			ORDER BY created_at DESC, id DESC`, projectID)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Report, 0)
		for rows.Next() {
			r, err := scanReport(rows, false)
			if err != nil {
				return err
			}
			result = append(result, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteReport удаляет отчёт.
func (s *Storage) DeleteReport(ctx context.Context, id int64) error {
	const op = "storage.DeleteReport"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
