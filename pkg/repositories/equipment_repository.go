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

const equipmentColumns = `
	e.id, e.project_id, e.catalog_item_id, e.name, e.room_id, e.installation_side,
	e.planned_quantity, e.ordered_quantity, e.received_quantity,
	e.unit_cost, e.supplier_name, e.instance_group_id, e.instance_number,
	e.import_batch_id, e.created_at, e.updated_at,
	COALESCE(c.required_for_prewire, false), COALESCE(c.required_for_trim, false)`

// EquipmentRepository defines the interface for equipment data access.
// Reads join the shared catalog so every returned item carries its phase
// eligibility flags.
type EquipmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.EquipmentItem, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.EquipmentItem, error)
	// InsertBatch inserts all items in one atomic transaction. Either every
	// row lands or none do; reimport depends on this.
	InsertBatch(ctx context.Context, items []*models.EquipmentItem) error
	// DeleteBatchTagged removes every import-tagged item for the project.
	// Manually created (untagged) equipment is never touched. Links cascade.
	DeleteBatchTagged(ctx context.Context, projectID uuid.UUID) (int, error)
	// AddOrdered adds delta to the ordered quantity, clamping at zero, and
	// returns the updated item.
	AddOrdered(ctx context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error)
	// AddReceived adds delta to the received quantity, clamping at zero, and
	// returns the updated item.
	AddReceived(ctx context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error)
	// ReceiveAllForPhase sets received = ordered for every phase-eligible
	// item with a positive ordered quantity. Returns the affected count.
	ReceiveAllForPhase(ctx context.Context, projectID uuid.UUID, phase models.Phase) (int, error)
}

type equipmentRepository struct {
	db *database.DB
}

// NewEquipmentRepository creates a new equipment repository.
func NewEquipmentRepository(db *database.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

func scanEquipment(row pgx.Row) (*models.EquipmentItem, error) {
	var e models.EquipmentItem
	err := row.Scan(
		&e.ID, &e.ProjectID, &e.CatalogItemID, &e.Name, &e.RoomID, &e.InstallationSide,
		&e.PlannedQuantity, &e.OrderedQuantity, &e.ReceivedQuantity,
		&e.UnitCost, &e.SupplierName, &e.InstanceGroupID, &e.InstanceNumber,
		&e.ImportBatchID, &e.CreatedAt, &e.UpdatedAt,
		&e.RequiredForPrewire, &e.RequiredForTrim)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *equipmentRepository) Get(ctx context.Context, id uuid.UUID) (*models.EquipmentItem, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment_items e
		LEFT JOIN catalog_items c ON c.id = e.catalog_item_id
		WHERE e.id = $1`

	item, err := scanEquipment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get equipment item: %w", err)
	}
	return item, nil
}

func (r *equipmentRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.EquipmentItem, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment_items e
		LEFT JOIN catalog_items c ON c.id = e.catalog_item_id
		WHERE e.project_id = $1
		ORDER BY e.created_at, e.instance_number`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	var items []*models.EquipmentItem
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *equipmentRepository) InsertBatch(ctx context.Context, items []*models.EquipmentItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO equipment_items (
			id, project_id, catalog_item_id, name, room_id, installation_side,
			planned_quantity, ordered_quantity, received_quantity,
			unit_cost, supplier_name, instance_group_id, instance_number,
			import_batch_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	batch := &pgx.Batch{}
	now := time.Now()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		batch.Queue(query,
			item.ID, item.ProjectID, item.CatalogItemID, item.Name, item.RoomID,
			item.InstallationSide, item.PlannedQuantity, item.OrderedQuantity,
			item.ReceivedQuantity, item.UnitCost, item.SupplierName,
			item.InstanceGroupID, item.InstanceNumber, item.ImportBatchID,
			item.CreatedAt, item.UpdatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert equipment item: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit equipment insert: %w", err)
	}
	return nil
}

func (r *equipmentRepository) DeleteBatchTagged(ctx context.Context, projectID uuid.UUID) (int, error) {
	query := `
		DELETE FROM equipment_items
		WHERE project_id = $1 AND import_batch_id IS NOT NULL`

	result, err := r.db.Exec(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch-tagged equipment: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *equipmentRepository) AddOrdered(ctx context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error) {
	return r.addQuantity(ctx, id, delta, "ordered_quantity")
}

func (r *equipmentRepository) AddReceived(ctx context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error) {
	return r.addQuantity(ctx, id, delta, "received_quantity")
}

func (r *equipmentRepository) addQuantity(ctx context.Context, id uuid.UUID, delta int, column string) (*models.EquipmentItem, error) {
	// column is one of two compile-time constants, never caller input.
	query := fmt.Sprintf(`
		WITH updated AS (
			UPDATE equipment_items
			SET %s = GREATEST(0, %s + $2), updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+equipmentColumns+`
		FROM updated e
		LEFT JOIN catalog_items c ON c.id = e.catalog_item_id`, column, column)

	item, err := scanEquipment(r.db.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update %s: %w", column, err)
	}
	return item, nil
}

func (r *equipmentRepository) ReceiveAllForPhase(ctx context.Context, projectID uuid.UUID, phase models.Phase) (int, error) {
	flag := "c.required_for_prewire"
	if phase == models.PhaseTrim {
		flag = "c.required_for_trim"
	}

	query := fmt.Sprintf(`
		UPDATE equipment_items e
		SET received_quantity = e.ordered_quantity, updated_at = now()
		FROM catalog_items c
		WHERE c.id = e.catalog_item_id
		  AND e.project_id = $1
		  AND e.ordered_quantity > 0
		  AND e.received_quantity < e.ordered_quantity
		  AND %s`, flag)

	result, err := r.db.Exec(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to receive all for phase %s: %w", phase, err)
	}
	return int(result.RowsAffected()), nil
}

var _ EquipmentRepository = (*equipmentRepository)(nil)
