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
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
)

// Retrier повторяет операцию над базой при временных сбоях соединения
// с экспоненциальной задержкой BaseDelay, 2*BaseDelay, 4*BaseDelay...
// Состояние между вызовами не хранится.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry вызывается перед каждой повторной попыткой.
	OnRetry func(op string, attempt int, err error)
}

// Do выполняет fn. Невременные ошибки возвращаются сразу. Если все попытки исчерпаны,
// возвращается последняя ошибка, помеченная apperr.ErrTransient.
// Отмена ctx прерывает ожидание между попытками.
func (r Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return errors.Join(ctxErr, err)
			}
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt >= attempts {
			return apperr.Transient(err)
		}

		if r.OnRetry != nil {
			r.OnRetry(op, attempt, err)
		}

		timer := time.NewTimer(r.BaseDelay << (attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// IsTransient сообщает, может ли ошибка исчезнуть при повторе: обрыв или отказ соединения,
// сетевой таймаут, SQLSTATE класса 08 и остановка сервера (57P01-57P03).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, sql.ErrTxDone) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.AdminShutdown, pgerrcode.CrashShutdown, pgerrcode.CannotConnectNow:
			return true
		}
		return pgerrcode.IsConnectionException(pgErr.Code)
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// run выполняет fn через retrier и оборачивает итоговую ошибку именем операции.
func (s *Storage) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if err := s.retrier.Do(ctx, op, fn); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// inTx выполняет fn в транзакции. Повторяется транзакция целиком.
func (s *Storage) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.run(ctx, op, func(ctx context.Context) error {
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()
		if err = fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
