package models

import (
	"time"

	"github.com/google/uuid"
)

// Project statuses.
const (
	ProjectStatusActive   = "active"
	ProjectStatusComplete = "complete"
	ProjectStatusArchived = "archived"
)

// Project is the scope for all equipment, rooms, wire drops, and progress
// rollups. The wider project-management surface lives outside this engine;
// only the fields the engine itself needs are modeled here.
type Project struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	ClientName string    `json:"client_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
