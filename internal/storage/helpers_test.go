package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/magabrotheeeer/lab-notebook/internal/migrations"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя
func (f *TestDataFactory) CreateUser(t *testing.T, email, name string) *models.User {
	u, err := f.storage.CreateUser(context.Background(), models.NewUser{
		Email:        email,
		Name:         name,
		PasswordHash: "hashedpassword",
	})
	require.NoError(t, err)
	return u
}

// CreateProject создает тестовый проект
func (f *TestDataFactory) CreateProject(t *testing.T, ownerID int64, name string) *models.Project {
	p, err := f.storage.CreateProject(context.Background(), ownerID, models.ProjectInput{Name: name})
	require.NoError(t, err)
	return p
}

// CreateExperiment создает тестовый эксперимент
func (f *TestDataFactory) CreateExperiment(t *testing.T, projectID, createdBy int64, name string) *models.Experiment {
	e, err := f.storage.CreateExperiment(context.Background(), projectID, createdBy, models.ExperimentInput{Name: name})
	require.NoError(t, err)
	return e
}

// CreateNote создает тестовую заметку
func (f *TestDataFactory) CreateNote(t *testing.T, authorID, projectID int64, experimentID *int64, title string) *models.Note {
	n, err := f.storage.CreateNote(context.Background(), authorID, models.NoteInput{
		ProjectID:    projectID,
		ExperimentID: experimentID,
		Title:        title,
		Content:      "<p>" + title + "</p>",
	})
	require.NoError(t, err)
	return n
}

// CreateAttachment создает тестовое вложение
func (f *TestDataFactory) CreateAttachment(t *testing.T, noteID int64, data []byte) *models.Attachment {
	a, err := f.storage.CreateAttachment(context.Background(), models.Attachment{
		NoteID:      noteID,
		FileName:    "data.bin",
		ContentType: "application/octet-stream",
		Data:        data,
	})
	require.NoError(t, err)
	return a
}

// count возвращает число строк таблицы, удовлетворяющих условию
func count(t *testing.T, s *Storage, query string, args ...any) int {
	var n int
	require.NoError(t, s.DB.QueryRow(query, args...).Scan(&n))
	return n
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и накатывает миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
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

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr, Retrier{MaxAttempts: 5, BaseDelay: 200 * time.Millisecond})
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}
