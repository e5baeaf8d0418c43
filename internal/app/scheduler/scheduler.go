// Package scheduler собирает планировщик периодического обслуживания журнала.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/lab-notebook/internal/services/scheduler"
	"github.com/magabrotheeeer/lab-notebook/internal/storage"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	cfg              config.Scheduler
	db               *storage.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnectRetries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EmailQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Storage.New сам повторяет Ping при временных ошибках соединения.
	db, err := storage.New(ctx, cfg.StorageConnectionString, storage.Retrier{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
	})
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		schedulerService: schedulerservice.New(db, rabbitmq.NewPublisher(ch), cfg.ReminderWindow, logger),
		cfg:              cfg.Scheduler,
		db:               db,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx, a.cfg.Interval)

	a.logger.Info("shutting down scheduler service")
	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
