package models

import "time"

// Роли соавторов проекта.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
)

// Project принадлежит ровно одному пользователю и содержит эксперименты, заметки и соавторов.
type Project struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectInput: тело запроса на создание или изменение проекта.
type ProjectInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// ProjectScope: данные, необходимые для проверки доступа к проекту и его дочерним сущностям.
// Role пуста, если пользователь не является соавтором.
type ProjectScope struct {
	ProjectID int64
	OwnerID   int64
	Role      string
}

// Collaborator: пользователь, получивший роль в чужом проекте.
type Collaborator struct {
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CollaboratorInput: тело запроса на добавление соавтора. Нужно указать user_id или email.
type CollaboratorInput struct {
	UserID int64  `json:"user_id" validate:"omitempty,gt=0"`
	Email  string `json:"email" validate:"omitempty,email"`
	Role   string `json:"role" validate:"required"`
}

// RoleInput: тело запроса на смену роли соавтора.
type RoleInput struct {
	Role string `json:"role" validate:"required"`
}
