package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"bad conn", driver.ErrBadConn, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"net timeout", timeoutErr{}, true},
		{"connection failure sqlstate", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"no rows", sql.ErrNoRows, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	for n := 1; n <= 3; n++ {
		t.Run(fmt.Sprintf("success on attempt %d", n), func(t *testing.T) {
			r := Retrier{MaxAttempts: 3, BaseDelay: time.Millisecond}
			calls := 0
			var got int
			err := r.Do(context.Background(), "test", func(context.Context) error {
				calls++
				if calls < n {
					return syscall.ECONNRESET
				}
				got = 42
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, n, calls)
			assert.Equal(t, 42, got)
		})
	}
}

func TestRetrier_ExhaustedReturnsOriginalError(t *testing.T) {
	original := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	var retries []int
	r := Retrier{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnRetry: func(op string, attempt int, err error) {
			assert.Equal(t, "test", op)
			retries = append(retries, attempt)
		},
	}

	calls := 0
	err := r.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return original
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
	assert.ErrorIs(t, err, original)
	assert.ErrorIs(t, err, apperr.ErrTransient)
}

func TestRetrier_NonTransientNotRetried(t *testing.T) {
	r := Retrier{MaxAttempts: 5, BaseDelay: time.Millisecond}
	unique := &pgconn.PgError{Code: "23505"}

	calls := 0
	err := r.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return unique
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, unique)
	assert.NotErrorIs(t, err, apperr.ErrTransient)
}

func TestRetrier_BackoffDoubles(t *testing.T) {
	r := Retrier{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}

	start := time.Now()
	_ = r.Do(context.Background(), "test", func(context.Context) error {
		return driver.ErrBadConn
	})
	// 20ms + 40ms между тремя попытками
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRetrier_ContextCancelInterruptsBackoff(t *testing.T) {
	r := Retrier{MaxAttempts: 3, BaseDelay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Do(ctx, "test", func(context.Context) error {
		return syscall.ECONNREFUSED
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetrier_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Retrier{}.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return syscall.ECONNRESET
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, apperr.ErrTransient)
}

func TestMapError(t *testing.T) {
	t.Run("no rows is not found", func(t *testing.T) {
		err := mapError(sql.ErrNoRows)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("unique violation is conflict", func(t *testing.T) {
		assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), apperr.ErrConflict)
	})

	t.Run("composite note fk is experiment validation", func(t *testing.T) {
		err := mapError(&pgconn.PgError{Code: "23503", ConstraintName: "notes_experiment_id_project_id_fkey"})
		v, ok := apperr.IsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.Fields, "experiment_id")
	})

	t.Run("check violation is validation", func(t *testing.T) {
		_, ok := apperr.IsValidation(mapError(&pgconn.PgError{Code: "23514", ConstraintName: "experiments_status_check"}))
		assert.True(t, ok)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		assert.Equal(t, boom, mapError(boom))
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, EscapeLike(`c:\dir`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}
