// Package request разбирает входные данные HTTP-запросов: JSON-тело,
// параметры пути и строки запроса. Ошибки возвращаются как apperr.ValidationError.
package request

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// MaxBodyBytes: предельный размер JSON-тела запроса.
const MaxBodyBytes = 4 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// maxbytes ограничивает длину строки в байтах, а не в символах.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= n
	})
	return v
}

// Decode читает JSON-тело в dst и проверяет его теги validate.
// Тело длиннее MaxBodyBytes отклоняется с apperr.ErrTooLarge.
func Decode(r *http.Request, dst any) error {
	if err := render.DecodeJSON(http.MaxBytesReader(nil, r.Body, MaxBodyBytes), dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.ErrTooLarge
		}
		return apperr.NewValidation("body", "invalid JSON")
	}
	return Validate(dst)
}

// Validate проверяет структуру по тегам validate.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return response.ValidationError(verrs)
		}
		return err
	}
	return nil
}

// ID возвращает положительный целочисленный параметр пути.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewValidation(name, "must be a positive integer")
	}
	return id, nil
}

// QueryID возвращает необязательный положительный целочисленный параметр строки запроса.
func QueryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.NewValidation(name, "must be a positive integer")
	}
	return &id, nil
}

// QueryInt возвращает неотрицательный целочисленный параметр или def, если он не задан.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.NewValidation(name, "must be a non-negative integer")
	}
	return n, nil
}

// QueryTime возвращает необязательный параметр времени в формате RFC 3339.
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.NewValidation(name, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}

// Actor возвращает аутентифицированного пользователя запроса.
func Actor(r *http.Request) (models.Actor, error) {
	actor, ok := middlewarectx.ActorFrom(r.Context())
	if !ok {
		return models.Actor{}, apperr.ErrUnauthenticated
	}
	return actor, nil
}
