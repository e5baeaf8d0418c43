package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
)

// mapError переводит ошибки драйвера в таксономию apperr, сохраняя исходную ошибку в цепочке.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %w", apperr.ErrConflict, err)
	case pgerrcode.ForeignKeyViolation:
		return &apperr.ValidationError{Fields: map[string]string{fkField(pgErr): "references a missing or mismatched entity"}}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		if field == "" {
			field = "body"
		}
		return &apperr.ValidationError{Fields: map[string]string{field: "invalid value"}}
	}
	return err
}

func fkField(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "notes_experiment_id_project_id_fkey":
		return "experiment_id"
	case "":
		return "reference"
	}
	return pgErr.ConstraintName
}

// affected возвращает ErrNotFound, если запрос не затронул ни одной строки.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
