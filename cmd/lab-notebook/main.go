// Package main Lab Notebook API
//
// @title           Lab Notebook API
// @version         1.0
// @description     API электронного лабораторного журнала: проекты, эксперименты, заметки, вложения, PDF-отчёты и календарь.

// @contact.name   API Support

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/magabrotheeeer/lab-notebook/docs"
	"github.com/magabrotheeeer/lab-notebook/internal/app/labnotebook"
	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.Setup(cfg.Env, os.Stdout)

	logger.Info("starting lab-notebook", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := labnotebook.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("lab-notebook stopped gracefully")
}
