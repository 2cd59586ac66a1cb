package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitewire-io/sitewire-engine/pkg/database"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// LinkedEquipmentRow is one equipment link joined with the descriptive
// fields of the equipment row it points at. The reconciliation snapshot
// phase reads these to derive match keys before the equipment is deleted.
type LinkedEquipmentRow struct {
	Link models.EquipmentLink

	EquipmentName    string
	CatalogItemID    *uuid.UUID
	PartNumber       string
	RoomID           *uuid.UUID
	RoomName         string
	InstallationSide models.InstallationSide
}

// EquipmentLinkRepository defines the interface for wire-drop-to-equipment
// link data access.
type EquipmentLinkRepository interface {
	// Create inserts a link. Inserting an exact duplicate of an existing
	// (wire drop, equipment, side) triple is a no-op; Create reports whether
	// a row was written.
	Create(ctx context.Context, link *models.EquipmentLink) (bool, error)
	// ListBatchTagged returns every link whose equipment belongs to the
	// project and was created by a reimport, joined with the equipment's
	// descriptive fields. Pure read.
	ListBatchTagged(ctx context.Context, projectID uuid.UUID) ([]*LinkedEquipmentRow, error)
	ListByWireDrop(ctx context.Context, wireDropID uuid.UUID) ([]*models.EquipmentLink, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int, error)
}

type equipmentLinkRepository struct {
	db *database.DB
}

// NewEquipmentLinkRepository creates a new equipment link repository.
func NewEquipmentLinkRepository(db *database.DB) EquipmentLinkRepository {
	return &equipmentLinkRepository{db: db}
}

func (r *equipmentLinkRepository) Create(ctx context.Context, link *models.EquipmentLink) (bool, error) {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	link.CreatedAt = time.Now()

	query := `
		INSERT INTO equipment_links (id, wire_drop_id, equipment_id, side, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wire_drop_id, equipment_id, side) DO NOTHING`

	result, err := r.db.Exec(ctx, query,
		link.ID, link.WireDropID, link.EquipmentID, link.Side, link.SortOrder, link.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create equipment link: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *equipmentLinkRepository) ListBatchTagged(ctx context.Context, projectID uuid.UUID) ([]*LinkedEquipmentRow, error) {
	query := `
		SELECT l.id, l.wire_drop_id, l.equipment_id, l.side, l.sort_order, l.created_at,
		       e.name, e.catalog_item_id, COALESCE(c.part_number, ''),
		       e.room_id, COALESCE(rm.name, ''), e.installation_side
		FROM equipment_links l
		JOIN equipment_items e ON e.id = l.equipment_id
		LEFT JOIN catalog_items c ON c.id = e.catalog_item_id
		LEFT JOIN rooms rm ON rm.id = e.room_id
		WHERE e.project_id = $1 AND e.import_batch_id IS NOT NULL
		ORDER BY l.wire_drop_id, l.sort_order`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch-tagged links: %w", err)
	}
	defer rows.Close()

	var result []*LinkedEquipmentRow
	for rows.Next() {
		var row LinkedEquipmentRow
		err := rows.Scan(
			&row.Link.ID, &row.Link.WireDropID, &row.Link.EquipmentID,
			&row.Link.Side, &row.Link.SortOrder, &row.Link.CreatedAt,
			&row.EquipmentName, &row.CatalogItemID, &row.PartNumber,
			&row.RoomID, &row.RoomName, &row.InstallationSide)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked equipment row: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

func (r *equipmentLinkRepository) ListByWireDrop(ctx context.Context, wireDropID uuid.UUID) ([]*models.EquipmentLink, error) {
	query := `
		SELECT id, wire_drop_id, equipment_id, side, sort_order, created_at
		FROM equipment_links
		WHERE wire_drop_id = $1
		ORDER BY sort_order`

	rows, err := r.db.Query(ctx, query, wireDropID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links by wire drop: %w", err)
	}
	defer rows.Close()

	var links []*models.EquipmentLink
	for rows.Next() {
		var l models.EquipmentLink
		if err := rows.Scan(&l.ID, &l.WireDropID, &l.EquipmentID, &l.Side, &l.SortOrder, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan equipment link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func (r *equipmentLinkRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM equipment_links l
		JOIN equipment_items e ON e.id = l.equipment_id
		WHERE e.project_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

var _ EquipmentLinkRepository = (*equipmentLinkRepository)(nil)
