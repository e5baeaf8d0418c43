// Package sender собирает воркер, который забирает письма из очереди и отправляет их по SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/lab-notebook/internal/services/sender"
)

// App представляет приложение почтового воркера.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к брокеру и объявляет очередь писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnectRetries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EmailQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.New(transport, logger),
		logger:        logger,
	}, nil
}

// Run потребляет очередь писем до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.EmailQueue, a.logger, a.senderService.HandleEmail)
	if err != nil {
		a.logger.Error("failed to start email consumer", sl.Err(err))
		a.close()
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
