package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is a named location scope within a project, created on demand during
// reimport when a referenced room name has no existing match.
type Room struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
