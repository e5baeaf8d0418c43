// Package attachments содержит HTTP-обработчики вложений заметок:
// загрузку multipart-файла, список, метаданные, скачивание и удаление.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/request"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// FormField: имя поля multipart-формы с файлом.
const FormField = "file"

// multipartOverhead: запас на заголовки multipart сверх размера файла.
const multipartOverhead = 1 << 20

// Service описывает интерфейс бизнес-логики вложений.
type Service interface {
	MaxSize() int64
	Upload(ctx context.Context, actor models.Actor, noteID int64, fileName string, data []byte) (*models.Attachment, error)
	List(ctx context.Context, actor models.Actor, noteID int64) ([]*models.Attachment, error)
	Get(ctx context.Context, actor models.Actor, id int64, withData bool) (*models.Attachment, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обрабатывает запросы к вложениям.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Upload godoc
// @Summary Загрузить вложение
// @Description Принимает multipart-форму с полем file. Тип содержимого определяется по данным.
// @Tags Attachments
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID заметки"
// @Param file formData file true "Файл"
// @Success 201 {object} response.Response{data=models.Attachment}
// @Failure 400 {object} response.ErrorResponse
// @Failure 413 {object} response.ErrorResponse "Файл слишком большой"
// @Router /notes/{id}/attachments [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.attachments.upload")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	noteID, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	maxSize := h.service.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	name, data, err := readFile(r, maxSize)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	a, err := h.service.Upload(r.Context(), actor, noteID, name, data)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("attachment uploaded",
		slog.Int64("attachment_id", a.ID),
		slog.Int64("note_id", noteID),
		slog.Int64("size", a.SizeBytes),
	)
	response.JSON(w, r, http.StatusCreated, a)
}

func readFile(r *http.Request, maxSize int64) (string, []byte, error) {
	f, hdr, err := r.FormFile(FormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, apperr.ErrTooLarge
		}
		return "", nil, apperr.NewValidation(FormField, "multipart field is required")
	}
	defer f.Close()

	if hdr.Size > maxSize {
		return "", nil, fmt.Errorf("%d bytes: %w", hdr.Size, apperr.ErrTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return "", nil, err
	}
	if int64(len(data)) > maxSize {
		return "", nil, apperr.ErrTooLarge
	}
	return hdr.Filename, data, nil
}

// List godoc
// @Summary Вложения заметки
// @Tags Attachments
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID заметки"
// @Success 200 {object} response.Response{data=[]models.Attachment}
// @Router /notes/{id}/attachments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.attachments.list")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	noteID, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	list, err := h.service.List(r.Context(), actor, noteID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Метаданные вложения
// @Tags Attachments
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID вложения"
// @Success 200 {object} response.Response{data=models.Attachment}
// @Router /attachments/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.attachments.get")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	a, err := h.service.Get(r.Context(), actor, id, false)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, a)
}

// Download godoc
// @Summary Скачать вложение
// @Description Отдаёт содержимое с исходным типом и именем файла.
// @Tags Attachments
// @Security BearerAuth
// @Produce octet-stream
// @Param id path int true "ID вложения"
// @Success 200 {file} binary
// @Router /attachments/{id}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.attachments.download")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	a, err := h.service.Get(r.Context(), actor, id, true)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	WriteFile(w, a.ContentType, a.FileName, "attachment", a.Data)
}

// WriteFile отдаёт бинарное содержимое с заголовками Content-Type и Content-Disposition.
func WriteFile(w http.ResponseWriter, contentType, fileName, disposition string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if cd := mime.FormatMediaType(disposition, map[string]string{"filename": fileName}); cd != "" {
		w.Header().Set("Content-Disposition", cd)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Delete godoc
// @Summary Удалить вложение
// @Tags Attachments
// @Security BearerAuth
// @Param id path int true "ID вложения"
// @Success 204
// @Router /attachments/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.attachments.delete")

	actor, err := request.Actor(r)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("attachment deleted", slog.Int64("attachment_id", id))
	response.NoContent(w)
}
