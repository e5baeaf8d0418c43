package models

import "time"

// ReportOptions: параметры генерации, сохраняемые вместе с отчётом.
type ReportOptions struct {
	IncludeImages     bool `json:"include_images"`
	IncludeExperiment bool `json:"include_experiment"`
}

// Report: сгенерированный PDF-снимок выбранных заметок проекта.
type Report struct {
	ID           int64         `json:"id"`
	ProjectID    int64         `json:"project_id"`
	ExperimentID *int64        `json:"experiment_id,omitempty"`
	AuthorID     *int64        `json:"author_id,omitempty"`
	Title        string        `json:"title"`
	Subtitle     string        `json:"subtitle,omitempty"`
	Options      ReportOptions `json:"options"`
	NoteIDs      []int64       `json:"note_ids"`
	PageCount    int           `json:"page_count"`
	SizeBytes    int64         `json:"size_bytes"`
	CreatedAt    time.Time     `json:"created_at"`
	PDF          []byte        `json:"-"`
}

// ReportInput: тело запроса на генерацию отчёта.
type ReportInput struct {
	ProjectID    int64         `json:"project_id" validate:"required,gt=0"`
	ExperimentID *int64        `json:"experiment_id" validate:"omitempty,gt=0"`
	Title        string        `json:"title" validate:"required,max=200"`
	Subtitle     string        `json:"subtitle" validate:"max=300"`
	NoteIDs      []int64       `json:"note_ids" validate:"required,min=1,max=500,dive,gt=0"`
	Options      ReportOptions `json:"options"`
}
