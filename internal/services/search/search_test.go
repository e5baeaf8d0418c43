package search

import (
	"context"
	"strings"
	"testing"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Search(ctx context.Context, userID int64, all bool, query string, limit int) (*models.SearchResult, error) {
	args := m.Called(ctx, userID, all, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResult), args.Error(1)
}

func TestService_Search(t *testing.T) {
	repo := new(MockRepository)
	long := "<p>" + strings.Repeat("word ", 100) + "</p>"
	repo.On("Search", mock.Anything, int64(3), false, "pcr", Limit).Return(&models.SearchResult{
		Query:       "pcr",
		Projects:    []models.SearchHit{{Kind: "project", ID: 1, Title: "PCR"}},
		Experiments: []models.SearchHit{},
		Notes: []models.SearchHit{
			{Kind: "note", ID: 5, Title: "Run", Snippet: "<h1>PCR</h1><p>cycle&nbsp;30 <b>times</b></p>"},
			{Kind: "note", ID: 6, Title: "Long", Snippet: long},
		},
	}, nil).Once()

	res, err := New(repo).Search(context.Background(), models.Actor{UserID: 3}, "  pcr ")
	require.NoError(t, err)
	require.Len(t, res.Notes, 2)
	assert.Equal(t, "PCR cycle 30 times", res.Notes[0].Snippet)
	assert.True(t, strings.HasSuffix(res.Notes[1].Snippet, "…"))
	assert.LessOrEqual(t, len([]rune(res.Notes[1].Snippet)), SnippetLength+1)
	repo.AssertExpectations(t)
}

func TestService_SearchTooShort(t *testing.T) {
	repo := new(MockRepository)
	for _, q := range []string{"", " a ", "я"} {
		_, err := New(repo).Search(context.Background(), models.Actor{UserID: 1}, q)
		v, ok := apperr.IsValidation(err)
		require.True(t, ok, q)
		assert.Contains(t, v.Fields, "q")
	}
	repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SearchAdminSeesAll(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Search", mock.Anything, int64(1), true, "яд", Limit).Return(&models.SearchResult{}, nil).Once()

	_, err := New(repo).Search(context.Background(), models.Actor{UserID: 1, IsAdmin: true}, "яд")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
