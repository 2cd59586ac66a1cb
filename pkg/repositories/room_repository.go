package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/database"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// RoomRepository defines the interface for room data access.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	// GetByName resolves a room by case-insensitive name within a project.
	GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Room, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Room, error)
}

type roomRepository struct {
	db *database.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *database.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	room.CreatedAt = time.Now()

	query := `
		INSERT INTO rooms (id, project_id, name, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, room.ID, room.ProjectID, room.Name, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *roomRepository) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Room, error) {
	query := `
		SELECT id, project_id, name, created_at
		FROM rooms
		WHERE project_id = $1 AND lower(name) = lower($2)`

	var room models.Room
	err := r.db.QueryRow(ctx, query, projectID, name).Scan(
		&room.ID, &room.ProjectID, &room.Name, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room by name: %w", err)
	}
	return &room, nil
}

func (r *roomRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Room, error) {
	query := `
		SELECT id, project_id, name, created_at
		FROM rooms
		WHERE project_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.ProjectID, &room.Name, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

var _ RoomRepository = (*roomRepository)(nil)
