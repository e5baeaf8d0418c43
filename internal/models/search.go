package models

// SearchHit: одна найденная сущность.
type SearchHit struct {
	Kind      string `json:"kind"`
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet,omitempty"`
}

// SearchResult: результаты поиска, сгруппированные по типу.
type SearchResult struct {
	Query       string      `json:"query"`
	Projects    []SearchHit `json:"projects"`
	Experiments []SearchHit `json:"experiments"`
	Notes       []SearchHit `json:"notes"`
}
