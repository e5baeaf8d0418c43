package labnotebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lab-notebook/internal/cache"
	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/jwt"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/metrics"
	"github.com/magabrotheeeer/lab-notebook/internal/migrations"
	attachmentservice "github.com/magabrotheeeer/lab-notebook/internal/services/attachments"
	authservice "github.com/magabrotheeeer/lab-notebook/internal/services/auth"
	calendarservice "github.com/magabrotheeeer/lab-notebook/internal/services/calendar"
	experimentservice "github.com/magabrotheeeer/lab-notebook/internal/services/experiments"
	noteservice "github.com/magabrotheeeer/lab-notebook/internal/services/notes"
	projectservice "github.com/magabrotheeeer/lab-notebook/internal/services/projects"
	reportservice "github.com/magabrotheeeer/lab-notebook/internal/services/reports"
	searchservice "github.com/magabrotheeeer/lab-notebook/internal/services/search"
	userservice "github.com/magabrotheeeer/lab-notebook/internal/services/users"
	"github.com/magabrotheeeer/lab-notebook/internal/storage"
	"github.com/magabrotheeeer/lab-notebook/internal/ws"
)

const shutdownTimeout = 15 * time.Second

// App: HTTP-приложение лабораторного журнала.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
	hub    *ws.Hub
}

// New подключает хранилище, кэш и брокер, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.labnotebook.New"

	hub := ws.NewHub(logger, cfg.AllowedOrigins)
	m := metrics.New(hub.Connected)

	db, err := storage.New(ctx, cfg.StorageConnectionString, storage.Retrier{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		OnRetry:     m.OnRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnectRetries, cfg.RetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EmailQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.New(db, jwtMaker, publisher, authservice.Options{
		ResetTokenTTL:        cfg.ResetTokenTTL,
		VerificationTokenTTL: cfg.VerificationTokenTTL,
		PublicBaseURL:        cfg.PublicBaseURL,
	}, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:        authService,
		Users:       userservice.New(db),
		Projects:    projectservice.New(db, cacheRedis, cfg.CacheTTL, logger),
		Experiments: experimentservice.New(db),
		Notes:       noteservice.New(db),
		Attachments: attachmentservice.New(db, cfg.MaxUploadSize),
		Reports:     reportservice.New(db, logger),
		Calendar:    calendarservice.New(db, hub, logger),
		Search:      searchservice.New(db),
		DB:          db,
		Hub:         hub,
		Metrics:     m,
		AuthLimiter: middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
		hub:    hub,
	}, nil
}

// Run обслуживает HTTP до отмены ctx и затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		// Hijacked WebSocket-соединения Shutdown не закрывает.
		a.hub.Close()
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
