// Package attachments содержит бизнес-логику файлов, прикреплённых к заметкам.
// Права на вложение определяются правами на заметку.
package attachments

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/magabrotheeeer/lab-notebook/internal/access"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const (
	// DefaultMaxSize: предельный размер файла, если он не задан в конфигурации.
	DefaultMaxSize = 10 << 20
	// maxFileName: предельная длина имени файла в байтах.
	maxFileName = 255
)

// Repository: операции хранилища над вложениями.
type Repository interface {
	access.ScopeLoader
	GetNote(ctx context.Context, id int64) (*models.Note, error)
	CreateAttachment(ctx context.Context, a models.Attachment) (*models.Attachment, error)
	GetAttachment(ctx context.Context, id int64, withData bool) (*models.Attachment, error)
	ListAttachments(ctx context.Context, noteID int64) ([]*models.Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
}

// Service: сервис вложений.
type Service struct {
	repo    Repository
	maxSize int64
}

// New создает новый экземпляр Service.
func New(repo Repository, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Service{repo: repo, maxSize: maxSize}
}

// MaxSize возвращает предельный размер файла.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Upload сохраняет файл. Тип содержимого определяется по самим данным.
func (s *Service) Upload(ctx context.Context, actor models.Actor, noteID int64, fileName string,
	data []byte) (*models.Attachment, error) {
	const op = "attachments.Upload"

	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", op, len(data), apperr.ErrTooLarge)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("file", "is empty"))
	}
	if _, err := s.authorizeNote(ctx, actor, noteID, access.Write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uploader := actor.UserID
	a, err := s.repo.CreateAttachment(ctx, models.Attachment{
		NoteID:      noteID,
		FileName:    CleanFileName(fileName),
		ContentType: mimetype.Detect(data).String(),
		UploadedBy:  &uploader,
		Data:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// List возвращает вложения заметки без содержимого.
func (s *Service) List(ctx context.Context, actor models.Actor, noteID int64) ([]*models.Attachment, error) {
	const op = "attachments.List"

	if _, err := s.authorizeNote(ctx, actor, noteID, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repo.ListAttachments(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает вложение; при withData — вместе с содержимым.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64, withData bool) (*models.Attachment, error) {
	const op = "attachments.Get"

	a, err := s.repo.GetAttachment(ctx, id, withData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.authorizeNote(ctx, actor, a.NoteID, access.Read); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Delete удаляет вложение.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "attachments.Delete"

	a, err := s.repo.GetAttachment(ctx, id, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.authorizeNote(ctx, actor, a.NoteID, access.Write); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteAttachment(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) authorizeNote(ctx context.Context, actor models.Actor, noteID int64,
	action access.Action) (*models.Note, error) {
	n, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	var author int64
	if n.AuthorID != nil {
		author = *n.AuthorID
	}
	if _, err := access.Authorize(ctx, s.repo, actor, access.KindAttachment, n.ProjectID, author, action); err != nil {
		return nil, err
	}
	return n, nil
}

// CleanFileName убирает путь и управляющие символы из имени файла.
// Длинное имя обрезается по границе символа.
func CleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	if len(name) > maxFileName {
		cut := maxFileName
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}
