// Package middlewarectx содержит HTTP middleware аутентификации и ограничения частоты запросов.
//
// AuthMiddleware извлекает токен из заголовка Authorization (Bearer) или из параметра
// access_token, проверяет его через сервис аутентификации и кладёт в контекст
// текущего пользователя и Actor для дальнейшего использования в обработчиках.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lab-notebook/internal/http/response"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// ActorKey: ключ models.Actor в контексте.
	ActorKey Key = "actor"
	// UserKey: ключ *models.User в контексте.
	UserKey Key = "user"
)

// AccessTokenParam: параметр строки запроса с токеном, нужен для WebSocket-клиентов,
// которые не умеют передавать заголовки.
const AccessTokenParam = "access_token"

// Authenticator проверяет токен и возвращает пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, models.Actor, error)
}

// AuthMiddleware возвращает middleware, который пропускает только запросы с действующей сессией.
func AuthMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AuthMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := BearerToken(r)
			if token == "" {
				response.WriteError(w, r, log, apperr.ErrUnauthenticated)
				return
			}

			user, actor, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				response.WriteError(w, r, log, err)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, actor)
			ctx = context.WithValue(ctx, UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken достаёт токен из заголовка Authorization или из параметра access_token.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get(AccessTokenParam)
}

// ActorFrom возвращает Actor текущего запроса.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(ActorKey).(models.Actor)
	return a, ok && a.UserID > 0
}

// UserFrom возвращает пользователя текущего запроса.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(UserKey).(*models.User)
	return u, ok && u != nil
}

// WithActor кладёт Actor в контекст. Используется в тестах обработчиков.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
