// Package labnotebook собирает HTTP-приложение лабораторного журнала.
package labnotebook

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/attachments"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/auth/account"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/auth/recovery"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/calendar"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/collaborators"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/experiments"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/health"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/notes"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/projects"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/reports"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/search"
	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/users"
	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/metrics"
	attachmentservice "github.com/magabrotheeeer/lab-notebook/internal/services/attachments"
	authservice "github.com/magabrotheeeer/lab-notebook/internal/services/auth"
	calendarservice "github.com/magabrotheeeer/lab-notebook/internal/services/calendar"
	experimentservice "github.com/magabrotheeeer/lab-notebook/internal/services/experiments"
	noteservice "github.com/magabrotheeeer/lab-notebook/internal/services/notes"
	projectservice "github.com/magabrotheeeer/lab-notebook/internal/services/projects"
	reportservice "github.com/magabrotheeeer/lab-notebook/internal/services/reports"
	searchservice "github.com/magabrotheeeer/lab-notebook/internal/services/search"
	userservice "github.com/magabrotheeeer/lab-notebook/internal/services/users"
	"github.com/magabrotheeeer/lab-notebook/internal/ws"
)

// Services: зависимости, из которых собираются маршруты.
type Services struct {
	Auth        *authservice.Service
	Users       *userservice.Service
	Projects    *projectservice.Service
	Experiments *experimentservice.Service
	Notes       *noteservice.Service
	Attachments *attachmentservice.Service
	Reports     *reportservice.Service
	Calendar    *calendarservice.Service
	Search      *searchservice.Service

	DB          health.Pinger
	Hub         *ws.Hub
	Metrics     *metrics.Metrics
	AuthLimiter *middlewarectx.RateLimiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		s.Metrics.Middleware,
	)

	accountHandler := account.New(logger, s.Auth)
	recoveryHandler := recovery.New(logger, s.Auth)
	projectHandler := projects.New(logger, s.Projects)
	collaboratorHandler := collaborators.New(logger, s.Projects)
	experimentHandler := experiments.New(logger, s.Experiments)
	noteHandler := notes.New(logger, s.Notes)
	attachmentHandler := attachments.New(logger, s.Attachments)
	reportHandler := reports.New(logger, s.Reports)
	calendarHandler := calendar.New(logger, s.Calendar, s.Hub)
	userHandler := users.New(logger, s.Users)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.New(logger, s.DB).ServeHTTP)

		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(s.AuthLimiter, logger))
			r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/forgot-password", recoveryHandler.ForgotPassword)
			r.Post("/auth/reset-password", recoveryHandler.ResetPassword)
			r.Post("/auth/verify-email", recoveryHandler.VerifyEmail)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AuthMiddleware(s.Auth, logger))

			r.Post("/auth/logout", accountHandler.Logout)
			r.Get("/auth/me", accountHandler.Me)
			r.Post("/auth/change-password", accountHandler.ChangePassword)
			r.Post("/auth/resend-verification", accountHandler.ResendVerification)

			r.Get("/users", userHandler.List)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}", userHandler.Update)
			r.Delete("/users/{id}", userHandler.Delete)

			r.Post("/projects", projectHandler.Create)
			r.Get("/projects", projectHandler.List)
			r.Get("/projects/{id}", projectHandler.Get)
			r.Put("/projects/{id}", projectHandler.Update)
			r.Delete("/projects/{id}", projectHandler.Delete)

			r.Get("/projects/{id}/collaborators", collaboratorHandler.List)
			r.Post("/projects/{id}/collaborators", collaboratorHandler.Add)
			r.Put("/projects/{id}/collaborators/{userID}", collaboratorHandler.UpdateRole)
			r.Delete("/projects/{id}/collaborators/{userID}", collaboratorHandler.Remove)

			r.Get("/projects/{id}/experiments", experimentHandler.List)
			r.Post("/projects/{id}/experiments", experimentHandler.Create)
			r.Get("/experiments/{id}", experimentHandler.Get)
			r.Put("/experiments/{id}", experimentHandler.Update)
			r.Delete("/experiments/{id}", experimentHandler.Delete)

			r.Get("/notes", noteHandler.List)
			r.Post("/notes", noteHandler.Create)
			r.Get("/notes/{id}", noteHandler.Get)
			r.Put("/notes/{id}", noteHandler.Update)
			r.Delete("/notes/{id}", noteHandler.Delete)

			r.Post("/notes/{id}/attachments", attachmentHandler.Upload)
			r.Get("/notes/{id}/attachments", attachmentHandler.List)
			r.Get("/attachments/{id}", attachmentHandler.Get)
			r.Get("/attachments/{id}/download", attachmentHandler.Download)
			r.Delete("/attachments/{id}", attachmentHandler.Delete)

			r.Post("/reports", reportHandler.Create)
			r.Get("/reports", reportHandler.List)
			r.Get("/reports/{id}", reportHandler.Get)
			r.Get("/reports/{id}/download", reportHandler.Download)
			r.Delete("/reports/{id}", reportHandler.Delete)

			r.Get("/calendar/events", calendarHandler.List)
			r.Post("/calendar/events", calendarHandler.Create)
			r.Get("/calendar/events/{id}", calendarHandler.Get)
			r.Put("/calendar/events/{id}", calendarHandler.Update)
			r.Delete("/calendar/events/{id}", calendarHandler.Delete)
			r.Get("/calendar/ws", calendarHandler.Subscribe)

			r.Get("/search", search.New(logger, s.Search).ServeHTTP)
		})
	})

	r.Handle("/metrics", s.Metrics.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
