// Package storage реализует хранилище лабораторного журнала на PostgreSQL:
// пользователи и сессии, проекты и соавторы, эксперименты, заметки, вложения,
// отчёты и события календаря. Каждое обращение к базе выполняется через Retrier.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB      *sql.DB
	retrier Retrier
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(ctx context.Context, storageConnectionString string, retrier Retrier) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Storage{DB: db, retrier: retrier}
	if err = s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	return s.run(ctx, op, func(ctx context.Context) error {
		return s.DB.PingContext(ctx)
	})
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
