package experiments

import (
	"context"
	"testing"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/magabrotheeeer/lab-notebook/internal/services/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	servicetest.Scopes
	mock.Mock
}

func (m *MockRepository) CreateExperiment(ctx context.Context, projectID, createdBy int64, in models.ExperimentInput) (*models.Experiment, error) {
	args := m.Called(ctx, projectID, createdBy, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Experiment), args.Error(1)
}

func (m *MockRepository) GetExperiment(ctx context.Context, id int64) (*models.Experiment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Experiment), args.Error(1)
}

func (m *MockRepository) ListExperiments(ctx context.Context, projectID int64) ([]*models.Experiment, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Experiment), args.Error(1)
}

func (m *MockRepository) UpdateExperiment(ctx context.Context, id int64, in models.ExperimentInput) (*models.Experiment, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Experiment), args.Error(1)
}

func (m *MockRepository) DeleteExperiment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

const (
	ownerID  = int64(1)
	viewerID = int64(2)
	editorID = int64(3)
)

func newRepo() *MockRepository {
	return &MockRepository{Scopes: servicetest.Scopes{
		Owners: map[int64]int64{10: ownerID},
		Roles:  map[int64]map[int64]string{10: {viewerID: "viewer", editorID: "Editor"}},
	}}
}

func ptr[T any](v T) *T { return &v }

func TestService_Create(t *testing.T) {
	repo := newRepo()
	svc := New(repo)
	ctx := context.Background()
	in := models.ExperimentInput{Name: "Run 1"}

	repo.On("CreateExperiment", mock.Anything, int64(10), editorID, in).
		Return(&models.Experiment{ID: 5, ProjectID: 10, Name: "Run 1", Status: models.ExperimentPlanned}, nil).Once()

	e, err := svc.Create(ctx, models.Actor{UserID: editorID}, 10, in)
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentPlanned, e.Status)

	_, err = svc.Create(ctx, models.Actor{UserID: viewerID}, 10, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(ctx, models.Actor{UserID: ownerID}, 99, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	start := time.Now()
	_, err = svc.Create(ctx, models.Actor{UserID: ownerID}, 10, models.ExperimentInput{
		Name: "bad", StartedAt: &start, EndedAt: ptr(start.Add(-time.Hour)),
	})
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "ended_at")

	repo.AssertExpectations(t)
}

func TestService_ViewerReadsButCannotWrite(t *testing.T) {
	repo := newRepo()
	svc := New(repo)
	ctx := context.Background()
	exp := &models.Experiment{ID: 5, ProjectID: 10, CreatedBy: ptr(ownerID)}

	repo.On("GetExperiment", mock.Anything, int64(5)).Return(exp, nil)
	repo.On("ListExperiments", mock.Anything, int64(10)).Return([]*models.Experiment{exp}, nil).Once()

	got, err := svc.Get(ctx, models.Actor{UserID: viewerID}, 5)
	require.NoError(t, err)
	assert.Equal(t, exp, got)

	list, err := svc.List(ctx, models.Actor{UserID: viewerID}, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Update(ctx, models.Actor{UserID: viewerID}, 5, models.ExperimentInput{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, models.Actor{UserID: viewerID}, 5), apperr.ErrForbidden)
	repo.AssertNotCalled(t, "DeleteExperiment", mock.Anything, mock.Anything)
}

func TestService_StrangerAndAdmin(t *testing.T) {
	repo := newRepo()
	svc := New(repo)
	ctx := context.Background()

	repo.On("GetExperiment", mock.Anything, int64(5)).Return(&models.Experiment{ID: 5, ProjectID: 10}, nil)
	repo.On("DeleteExperiment", mock.Anything, int64(5)).Return(nil).Once()

	_, err := svc.Get(ctx, models.Actor{UserID: 42}, 5)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.NoError(t, svc.Delete(ctx, models.Actor{UserID: 42, IsAdmin: true}, 5))
	repo.AssertExpectations(t)
}

func TestService_GetMissing(t *testing.T) {
	repo := newRepo()
	repo.On("GetExperiment", mock.Anything, int64(6)).Return(nil, apperr.ErrNotFound)

	_, err := New(repo).Get(context.Background(), models.Actor{UserID: ownerID}, 6)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
