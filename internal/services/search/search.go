// Package search ищет проекты, эксперименты и заметки, видимые пользователю.
package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/htmltext"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const (
	// MinQueryLength: минимальная длина запроса в символах.
	MinQueryLength = 2
	// Limit: максимум результатов в каждой группе.
	Limit = 20
	// SnippetLength: длина фрагмента текста в результате.
	SnippetLength = 160
)

// Repository выполняет поиск в хранилище.
type Repository interface {
	Search(ctx context.Context, userID int64, all bool, query string, limit int) (*models.SearchResult, error)
}

// Service: сервис поиска.
type Service struct {
	repo Repository
}

// New создает новый экземпляр Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search выполняет поиск по подстроке без учёта регистра.
// Описания и содержимое заметок возвращаются как текстовые фрагменты без HTML.
func (s *Service) Search(ctx context.Context, actor models.Actor, query string) (*models.SearchResult, error) {
	const op = "search.Search"

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, fmt.Errorf("%s: %w", op,
			apperr.NewValidation("q", fmt.Sprintf("must be at least %d characters", MinQueryLength)))
	}

	res, err := s.repo.Search(ctx, actor.UserID, actor.IsAdmin, query, Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, group := range [][]models.SearchHit{res.Projects, res.Experiments, res.Notes} {
		for i := range group {
			group[i].Snippet = htmltext.Snippet(group[i].Snippet, SnippetLength)
		}
	}
	return res, nil
}
