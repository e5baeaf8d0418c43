package labnotebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/docker/go-connections/nat"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/lab-notebook/internal/cache"
	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/magabrotheeeer/lab-notebook/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/jwt"
	"github.com/magabrotheeeer/lab-notebook/internal/metrics"
	"github.com/magabrotheeeer/lab-notebook/internal/migrations"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
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

// outbox собирает письма вместо очереди.
type outbox struct {
	mu   sync.Mutex
	sent []models.EmailMessage
}

func (o *outbox) SendEmail(_ context.Context, msg models.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// setupApp поднимает PostgreSQL в контейнере, накатывает миграции и собирает роутер
// с настоящими сервисами. Кэш работает на miniredis.
func setupApp(t *testing.T) (http.Handler, *outbox) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort(nat.Port("5432/tcp")),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := storage.New(ctx, connStr, storage.Retrier{MaxAttempts: 5, BaseDelay: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db.DB, migrationsPath))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cacheRedis, err := cache.InitServer(ctx, config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheRedis.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(log, nil)
	t.Cleanup(hub.Close)
	mail := &outbox{}

	router := chi.NewRouter()
	RegisterRoutes(router, log, Services{
		Auth:        authservice.New(db, jwt.NewJWTMaker("scenario-secret", time.Hour), mail, authservice.Options{}, log),
		Users:       userservice.New(db),
		Projects:    projectservice.New(db, cacheRedis, time.Minute, log),
		Experiments: experimentservice.New(db),
		Notes:       noteservice.New(db),
		Attachments: attachmentservice.New(db, attachmentservice.DefaultMaxSize),
		Reports:     reportservice.New(db, log),
		Calendar:    calendarservice.New(db, hub, log),
		Search:      searchservice.New(db),
		DB:          db,
		Hub:         hub,
		Metrics:     metrics.New(hub.Connected),
		AuthLimiter: middlewarectx.NewRateLimiter(1000, 1000),
	})
	return router, mail
}

func call(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dst), rec.Body.String())
}

func registerAndLogin(t *testing.T, h http.Handler, email, name string) (models.User, string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"name":%q,"password":"long-enough-pw"}`, email, name)

	rec := call(t, h, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user models.User
	decodeData(t, rec, &user)

	rec = call(t, h, http.MethodPost, "/api/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":"long-enough-pw"}`, email))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &login)
	require.NotEmpty(t, login.Token)
	return user, login.Token
}

func TestScenario_ViewerCanReadButNotEdit(t *testing.T) {
	router, mail := setupApp(t)

	admin, adminToken := registerAndLogin(t, router, "ada@lab.io", "Ada")
	member, memberToken := registerAndLogin(t, router, "bob@lab.io", "Bob")
	assert.True(t, admin.IsAdmin)
	assert.False(t, member.IsAdmin)
	assert.Len(t, mail.sent, 2)

	rec := call(t, router, http.MethodPost, "/api/projects", adminToken, `{"name":"Lab A"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project models.Project
	decodeData(t, rec, &project)
	projectURL := fmt.Sprintf("/api/projects/%d", project.ID)

	rec = call(t, router, http.MethodGet, projectURL, memberToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-member must not read")

	rec = call(t, router, http.MethodPost, projectURL+"/collaborators", memberToken,
		fmt.Sprintf(`{"user_id":%d,"role":"bogus"}`, member.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-member cannot manage collaborators")

	rec = call(t, router, http.MethodPost, projectURL+"/collaborators", adminToken,
		fmt.Sprintf(`{"user_id":%d,"role":"Viewer"}`, member.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"viewer"`)

	rec = call(t, router, http.MethodGet, projectURL, memberToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Lab A"`)

	rec = call(t, router, http.MethodPut, projectURL, memberToken, `{"name":"Lab B"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, router, http.MethodGet, projectURL, adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Lab A"`)
}
