package storage

import (
	"context"
	"strings"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// EscapeLike экранирует спецсимволы шаблона LIKE.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// visibleProjects: условие видимости проекта p для пользователя $1 (или всех при $2).
const visibleProjects = `($2 OR p.owner_id = $1 OR EXISTS (
	SELECT 1 FROM project_collaborators c WHERE c.project_id = p.id AND c.user_id = $1))`

// Search ищет проекты, эксперименты и заметки, видимые пользователю, по подстроке query.
// В каждой группе возвращается не более limit результатов.
func (s *Storage) Search(ctx context.Context, userID int64, all bool, query string, limit int) (*models.SearchResult, error) {
	const op = "storage.Search"

	pattern := "%" + EscapeLike(query) + "%"
	queries := []struct {
		kind string
		sql  string
		dst  *[]models.SearchHit
	}{
		{"project", `
			SELECT p.id, p.id, p.name, p.description
			FROM projects p
			WHERE ` + visibleProjects + `
			  AND (p.name ILIKE $3 OR p.description ILIKE $3)
			ORDER BY p.updated_at DESC LIMIT $4`, nil},
		{"experiment", `
			SELECT e.id, e.project_id, e.name, e.description
			FROM experiments e JOIN projects p ON p.id = e.project_id
			WHERE ` + visibleProjects + `
			  AND (e.name ILIKE $3 OR e.description ILIKE $3)
			ORDER BY e.updated_at DESC LIMIT $4`, nil},
		{"note", `
			SELECT n.id, n.project_id, n.title, n.content
			FROM notes n JOIN projects p ON p.id = n.project_id
			WHERE ` + visibleProjects + `
			  AND (n.title ILIKE $3 OR n.content ILIKE $3)
			ORDER BY n.updated_at DESC LIMIT $4`, nil},
	}

	result := &models.SearchResult{
		Query:       query,
		Projects:    []models.SearchHit{},
		Experiments: []models.SearchHit{},
		Notes:       []models.SearchHit{},
	}
	queries[0].dst = &result.Projects
	queries[1].dst = &result.Experiments
	queries[2].dst = &result.Notes

	err := s.run(ctx, op, func(ctx context.Context) error {
		for _, q := range queries {
			rows, err := s.DB.QueryContext(ctx, q.sql, userID, all, pattern, limit)
			if err != nil {
				return err
			}
			hits := make([]models.SearchHit, 0)
			for rows.Next() {
				h := models.SearchHit{Kind: q.kind}
				if err = rows.Scan(&h.ID, &h.ProjectID, &h.Title, &h.Snippet); err != nil {
					_ = rows.Close()
					return err
				}
				hits = append(hits, h)
			}
			if err = rows.Err(); err != nil {
				_ = rows.Close()
				return err
			}
			_ = rows.Close()
			*q.dst = hits
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
