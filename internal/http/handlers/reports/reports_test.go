package reports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lab-notebook/internal/http/handlers/handlertest"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, actor models.Actor, in models.ReportInput) (*models.Report, error) {
	args := m.Called(ctx, actor, in)
	r, _ := args.Get(0).(*models.Report)
	return r, args.Error(1)
}

func (m *MockService) List(ctx context.Context, actor models.Actor, projectID int64) ([]*models.Report, error) {
	args := m.Called(ctx, actor, projectID)
	list, _ := args.Get(0).([]*models.Report)
	return list, args.Error(1)
}

func (m *MockService) Get(ctx context.Context, actor models.Actor, id int64, withPDF bool) (*models.Report, error) {
	args := m.Called(ctx, actor, id, withPDF)
	r, _ := args.Get(0).(*models.Report)
	return r, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

var member = models.Actor{UserID: 2}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "generated",
			body: `{"project_id":1,"title":"Week 12","note_ids":[3,1],"options":{"include_images":true}}`,
			setup: func(m *MockService) {
				m.On("Create", mock.Anything, member, models.ReportInput{
					ProjectID: 1,
					Title:     "Week 12",
					NoteIDs:   []int64{3, 1},
					Options:   models.ReportOptions{IncludeImages: true},
				}).Return(&models.Report{ID: 8, PageCount: 2, NoteIDs: []int64{3, 1}}, nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"page_count":2`,
		},
		{
			name:       "no notes selected",
			body:       `{"project_id":1,"title":"Empty","note_ids":[]}`,
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"note_ids"`,
		},
		{
			name: "note from another project",
			body: `{"project_id":1,"title":"Mixed","note_ids":[99]}`,
			setup: func(m *MockService) {
				m.On("Create", mock.Anything, member, mock.Anything).
					Return(nil, apperr.NewValidation("note_ids", "notes must belong to the project")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"note_ids":"notes must belong to the project"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			rec := httptest.NewRecorder()
			New(handlertest.Logger(), svc).Create(rec, handlertest.Request(http.MethodPost, "/api/reports", tt.body, member))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestList_RequiresProject(t *testing.T) {
	svc := new(MockService)

	rec := httptest.NewRecorder()
	New(handlertest.Logger(), svc).List(rec, handlertest.Request(http.MethodGet, "/api/reports", "", member))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"project_id":"is required"`)
}

func TestDownload(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything, member, int64(8), true).
		Return(&models.Report{ID: 8, Title: "Week 12/13", PDF: []byte("%PDF-1.3 data")}, nil).Once()

	rec := httptest.NewRecorder()
	New(handlertest.Logger(), svc).Download(rec, handlertest.Request(http.MethodGet, "/", "", member, "id", "8"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Week 12_13.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 data", rec.Body.String())
}

func TestGetListDelete(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, member, int64(1)).Return([]*models.Report{{ID: 8}}, nil).Once()
	svc.On("Get", mock.Anything, member, int64(8), false).Return(&models.Report{ID: 8, Title: "Week"}, nil).Once()
	svc.On("Delete", mock.Anything, member, int64(8)).Return(apperr.ErrForbidden).Once()
	h := New(handlertest.Logger(), svc)

	rec := httptest.NewRecorder()
	h.List(rec, handlertest.Request(http.MethodGet, "/api/reports?project_id=1", "", member))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, handlertest.Request(http.MethodGet, "/", "", member, "id", "8"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "PDF")

	rec = httptest.NewRecorder()
	h.Delete(rec, handlertest.Request(http.MethodDelete, "/", "", member, "id", "8"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}
