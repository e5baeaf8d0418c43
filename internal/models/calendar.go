package models

import "time"

// Статусы события календаря.
const (
	EventScheduled = "scheduled"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// CalendarEvent: запланированное событие, опционально привязанное к проекту или эксперименту.
type CalendarEvent struct {
	ID             int64      `json:"id"`
	CreatedBy      int64      `json:"created_by"`
	ProjectID      *int64     `json:"project_id,omitempty"`
	ExperimentID   *int64     `json:"experiment_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         time.Time  `json:"ends_at"`
	AllDay         bool       `json:"all_day"`
	Attendees      []string   `json:"attendees"`
	Status         string     `json:"status"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// EventInput: тело запроса на создание или изменение события.
type EventInput struct {
	ProjectID    *int64    `json:"project_id" validate:"omitempty,gt=0"`
	ExperimentID *int64    `json:"experiment_id" validate:"omitempty,gt=0"`
	Title        string    `json:"title" validate:"required,max=200"`
	Description  string    `json:"description" validate:"max=5000"`
	Location     string    `json:"location" validate:"max=300"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	EndsAt       time.Time `json:"ends_at" validate:"required"`
	AllDay       bool      `json:"all_day"`
	Attendees    []string  `json:"attendees" validate:"max=100,dive,required,max=320"`
	Status       string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

// EventFilter: параметры выборки событий.
type EventFilter struct {
	From      *time.Time
	To        *time.Time
	ProjectID *int64
}

// EventChange: уведомление, рассылаемое подписчикам календаря по WebSocket.
type EventChange struct {
	Type      string `json:"type"`
	EventID   int64  `json:"event_id"`
	ProjectID *int64 `json:"project_id,omitempty"`
}
