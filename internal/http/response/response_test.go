package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
)

func TestOK(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := OK(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong")

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "something went wrong", resp.Error)
	assert.Nil(t, resp.Data)
}

func TestWriteError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantFields map[string]string
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("notes.Create: %w", apperr.NewValidation("experiment_id", "belongs to another project")),
			wantStatus: http.StatusBadRequest,
			wantError:  "validation failed",
			wantFields: map[string]string{"experiment_id": "belongs to another project"},
		},
		{name: "unauthenticated", err: apperr.ErrUnauthenticated, wantStatus: http.StatusUnauthorized, wantError: "unauthorized"},
		{name: "forbidden", err: fmt.Errorf("x: %w", apperr.ErrForbidden), wantStatus: http.StatusForbidden, wantError: "forbidden"},
		{name: "not found", err: fmt.Errorf("x: %w", apperr.ErrNotFound), wantStatus: http.StatusNotFound, wantError: "not found"},
		{name: "conflict", err: apperr.ErrConflict, wantStatus: http.StatusConflict, wantError: "already exists"},
		{name: "rate limited", err: apperr.ErrRateLimited, wantStatus: http.StatusTooManyRequests, wantError: "too many requests"},
		{name: "too large", err: apperr.ErrTooLarge, wantStatus: http.StatusRequestEntityTooLarge, wantError: "payload too large"},
		{
			name:       "internal details are hidden",
			err:        apperr.Transient(errors.New("dial tcp 10.0.0.5:5432: connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			WriteError(rec, req, log, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantFields, body.Fields)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		})
	}
}

func TestValidationError(t *testing.T) {
	type TestStruct struct {
		Name  string `validate:"required"`
		Role  string `validate:"oneof=viewer editor"`
		Email string `validate:"email"`
	}

	err := validator.New().Struct(TestStruct{Role: "owner", Email: "nope"})
	require.Error(t, err)

	v := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, "is required", v.Fields["Name"])
	assert.Equal(t, "must be one of: viewer editor", v.Fields["Role"])
	assert.Equal(t, "must be a valid email", v.Fields["Email"])
}

func TestJSONAndNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, httptest.NewRequest(http.MethodPost, "/", nil), http.StatusCreated, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"OK","data":{"id":1}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
