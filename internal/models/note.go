package models

import "time"

// Note: запись журнала с HTML-содержимым. Если указан эксперимент,
// он обязан принадлежать тому же проекту.
type Note struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	ExperimentID *int64    `json:"experiment_id,omitempty"`
	AuthorID     *int64    `json:"author_id,omitempty"`
	AuthorName   string    `json:"author_name,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NoteInput: тело запроса на создание заметки.
type NoteInput struct {
	ProjectID    int64  `json:"project_id" validate:"required,gt=0"`
	ExperimentID *int64 `json:"experiment_id" validate:"omitempty,gt=0"`
	Title        string `json:"title" validate:"required,max=300"`
	Content      string `json:"content"`
}

// NoteUpdate: тело запроса на изменение заметки. Перенос в другой проект не поддерживается.
type NoteUpdate struct {
	ExperimentID *int64 `json:"experiment_id" validate:"omitempty,gt=0"`
	Title        string `json:"title" validate:"required,max=300"`
	Content      string `json:"content"`
}

// NoteFilter: параметры выборки заметок.
type NoteFilter struct {
	ProjectID    int64
	ExperimentID *int64
	Limit        int
	Offset       int
}
