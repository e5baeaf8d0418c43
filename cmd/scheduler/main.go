package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/lab-notebook/internal/app/scheduler"
	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.Setup(cfg.Env, os.Stdout)

	logger.Info("starting scheduler",
		slog.String("env", cfg.Env),
		slog.Duration("interval", cfg.Interval),
		slog.Duration("reminder_window", cfg.ReminderWindow),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scheduler app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("scheduler app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("scheduler stopped gracefully")
}
