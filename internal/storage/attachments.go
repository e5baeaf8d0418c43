package storage

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const attachmentColumns = `id, note_id, file_name, content_type, size_bytes, uploaded_by, created_at`

func scanAttachment(row rowScanner, withData bool) (*models.Attachment, error) {
	var a models.Attachment
	var uploadedBy sql.NullInt64
	dest := []any{&a.ID, &a.NoteID, &a.FileName, &a.ContentType, &a.SizeBytes, &uploadedBy, &a.CreatedAt}
	if withData {
		dest = append(dest, &a.Data)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.UploadedBy = int64Ptr(uploadedBy)
	return &a, nil
}

// CreateAttachment сохраняет файл вместе с содержимым.
func (s *Storage) CreateAttachment(ctx context.Context, a models.Attachment) (*models.Attachment, error) {
	const op = "storage.CreateAttachment"

	var attachment *models.Attachment
	err := s.run(ctx, op, func(ctx context.Context) error {
		res, err := scanAttachment(s.DB.QueryRowContext(ctx, `
			INSERT INTO attachments (note_id, file_name, content_type, size_bytes, data, uploaded_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+attachmentColumns,
			a.NoteID, a.FileName, a.ContentType, int64(len(a.Data)), a.Data, nullInt64(a.UploadedBy)), false)
		attachment = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// GetAttachment возвращает метаданные вложения; при withData также содержимое.
func (s *Storage) GetAttachment(ctx context.Context, id int64, withData bool) (*models.Attachment, error) {
	const op = "storage.GetAttachment"

	columns := attachmentColumns
	if withData {
		columns += ", data"
	}
	var attachment *models.Attachment
	err := s.run(ctx, op, func(ctx context.Context) error {
		a, err := scanAttachment(s.DB.QueryRowContext(ctx,
			`SELECT `+columns+` FROM attachments WHERE id = $1`, id), withData)
		attachment = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// ListAttachments возвращает метаданные вложений заметки.
func (s *Storage) ListAttachments(ctx context.Context, noteID int64) ([]*models.Attachment, error) {
	const op = "storage.ListAttachments"

	var result []*models.Attachment
	err := s.run(ctx, op, func(ctx context.Context) error {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT `+attachmentColumns+`
			FROM attachments
			WHERE note_id = $1
			ORDER BY created_at, id`, noteID)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		result = make([]*models.Attachment, 0)
		for rows.Next() {
			a, err := scanAttachment(rows, false)
			if err != nil {
				return err
			}
			result = append(result, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAttachment удаляет вложение.
func (s *Storage) DeleteAttachment(ctx context.Context, id int64) error {
	const op = "storage.DeleteAttachment"
	return s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.DB.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
