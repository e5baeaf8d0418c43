// Package handlertest содержит помощники для тестов HTTP-обработчиков.
package handlertest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// Logger возвращает логгер, который ничего не пишет.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Request собирает запрос с Actor в контексте и параметрами пути chi.
// params задаются парами имя, значение.
func Request(method, target, body string, actor models.Actor, params ...string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if actor.UserID > 0 {
		ctx = middlewarectx.WithActor(ctx, actor)
	}
	return req.WithContext(ctx)
}
