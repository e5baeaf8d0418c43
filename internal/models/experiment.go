package models

import "time"

// Статусы эксперимента.
const (
	ExperimentPlanned    = "planned"
	ExperimentInProgress = "in_progress"
	ExperimentCompleted  = "completed"
	ExperimentArchived   = "archived"
)

// Experiment принадлежит одному проекту и объединяет заметки.
type Experiment struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedBy   *int64     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ExperimentInput: тело запроса на создание или изменение эксперимента.
type ExperimentInput struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status" validate:"omitempty,oneof=planned in_progress completed archived"`
	StartedAt   *time.Time `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
}
