// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Fields — ошибки по полям запроса (опционально, при ошибке валидации).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Data   any               `json:"data,omitempty"`
}

// ErrorResponse: структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string            `json:"status" example:"Error"`
	Error  string            `json:"error" example:"validation failed"`
	Fields map[string]string `json:"fields,omitempty"`
}

const (
	// StatusOK: значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError: значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OK возвращает успешный Response с переданными данными.
func OK(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// JSON пишет успешный ответ с кодом status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, OK(data))
}

// NoContent пишет пустой ответ 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// StatusFor сопоставляет ошибку таксономии apperr с HTTP-кодом.
func StatusFor(err error) int {
	if _, ok := apperr.IsValidation(err); ok {
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError превращает ошибку в JSON-ответ. Внутренние ошибки логируются
// полностью, клиенту уходит только общее сообщение.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := StatusFor(err)
	log = log.With(
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", status),
	)

	resp := Error(http.StatusText(status))
	switch status {
	case http.StatusBadRequest:
		v, _ := apperr.IsValidation(err)
		resp.Error = "validation failed"
		resp.Fields = v.Fields
		log.Info("request rejected", sl.Err(err))
	case http.StatusUnauthorized:
		resp.Error = "unauthorized"
		log.Info("request rejected", sl.Err(err))
	case http.StatusForbidden:
		resp.Error = "forbidden"
		log.Info("request rejected", sl.Err(err))
	case http.StatusNotFound:
		resp.Error = "not found"
		log.Info("request rejected", sl.Err(err))
	case http.StatusConflict:
		resp.Error = "already exists"
		log.Info("request rejected", sl.Err(err))
	case http.StatusRequestEntityTooLarge:
		resp.Error = "payload too large"
		log.Info("request rejected", sl.Err(err))
	case http.StatusTooManyRequests:
		resp.Error = "too many requests"
	default:
		resp.Error = "internal server error"
		log.Error("request failed", sl.Err(err))
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

// ValidationError формирует apperr.ValidationError на основе ошибок валидатора.
// Имена полей берутся такими, какими их вернул валидатор (с RegisterTagNameFunc — из json-тегов).
func ValidationError(errs validator.ValidationErrors) *apperr.ValidationError {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		var msg string
		switch err.ActualTag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email"
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", err.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s", err.Param())
		case "maxbytes":
			msg = fmt.Sprintf("must be at most %s bytes", err.Param())
		case "min":
			msg = fmt.Sprintf("must be at least %s", err.Param())
		case "gt":
			msg = fmt.Sprintf("must be greater than %s", err.Param())
		default:
			msg = "is not valid"
		}
		fields[err.Field()] = msg
	}
	return &apperr.ValidationError{Fields: fields}
}
