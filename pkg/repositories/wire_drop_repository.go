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

// WireDropRepository defines the interface for installation-record data
// access. The engine reads wire drops for stage percentages; creating and
// editing them belongs to the installation-detail UI.
type WireDropRepository interface {
	Create(ctx context.Context, drop *models.WireDrop) error
	Get(ctx context.Context, id uuid.UUID) (*models.WireDrop, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.WireDrop, error)
}

type wireDropRepository struct {
	db *database.DB
}

// NewWireDropRepository creates a new wire drop repository.
func NewWireDropRepository(db *database.DB) WireDropRepository {
	return &wireDropRepository{db: db}
}

func (r *wireDropRepository) Create(ctx context.Context, drop *models.WireDrop) error {
	if drop.ID == uuid.Nil {
		drop.ID = uuid.New()
	}
	now := time.Now()
	drop.CreatedAt = now
	drop.UpdatedAt = now

	query := `
		INSERT INTO wire_drops (id, project_id, name, room_id,
			plan_complete, prewire_complete, trim_complete, commission_complete,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		drop.ID, drop.ProjectID, drop.Name, drop.RoomID,
		drop.PlanComplete, drop.PrewireComplete, drop.TrimComplete, drop.CommissionComplete,
		drop.CreatedAt, drop.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wire drop: %w", err)
	}
	return nil
}

func (r *wireDropRepository) Get(ctx context.Context, id uuid.UUID) (*models.WireDrop, error) {
	query := `
		SELECT id, project_id, name, room_id,
		       plan_complete, prewire_complete, trim_complete, commission_complete,
		       created_at, updated_at
		FROM wire_drops
		WHERE id = $1`

	var d models.WireDrop
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.ProjectID, &d.Name, &d.RoomID,
		&d.PlanComplete, &d.PrewireComplete, &d.TrimComplete, &d.CommissionComplete,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wire drop: %w", err)
	}
	return &d, nil
}

func (r *wireDropRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.WireDrop, error) {
	query := `
		SELECT id, project_id, name, room_id,
		       plan_complete, prewire_complete, trim_complete, commission_complete,
		       created_at, updated_at
		FROM wire_drops
		WHERE project_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wire drops: %w", err)
	}
	defer rows.Close()

	var drops []*models.WireDrop
	for rows.Next() {
		var d models.WireDrop
		err := rows.Scan(
			&d.ID, &d.ProjectID, &d.Name, &d.RoomID,
			&d.PlanComplete, &d.PrewireComplete, &d.TrimComplete, &d.CommissionComplete,
			&d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wire drop: %w", err)
		}
		drops = append(drops, &d)
	}
	return drops, rows.Err()
}

var _ WireDropRepository = (*wireDropRepository)(nil)
