package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/database"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// CatalogRepository defines the interface for shared catalog data access.
type CatalogRepository interface {
	GetByPartNumber(ctx context.Context, partNumber string) (*models.CatalogItem, error)
	// Upsert resolves a catalog entry by part number, creating it if absent
	// and syncing name, cost, and supplier if present. Returns the entry and
	// whether it was newly created.
	Upsert(ctx context.Context, partNumber, name string, unitCost decimal.Decimal, supplierName string) (*models.CatalogItem, bool, error)
}

type catalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *database.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetByPartNumber(ctx context.Context, partNumber string) (*models.CatalogItem, error) {
	query := `
		SELECT id, part_number, name, required_for_prewire, required_for_trim,
		       unit_cost, supplier_name, created_at, updated_at
		FROM catalog_items
		WHERE part_number = $1`

	var item models.CatalogItem
	err := r.db.QueryRow(ctx, query, partNumber).Scan(
		&item.ID, &item.PartNumber, &item.Name,
		&item.RequiredForPrewire, &item.RequiredForTrim,
		&item.UnitCost, &item.SupplierName,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}
	return &item, nil
}

func (r *catalogRepository) Upsert(ctx context.Context, partNumber, name string, unitCost decimal.Decimal, supplierName string) (*models.CatalogItem, bool, error) {
	now := time.Now()

	// Eligibility flags are curated by hand, so the upsert never touches
	// them; a reimport only refreshes descriptive fields.
	query := `
		INSERT INTO catalog_items (id, part_number, name, unit_cost, supplier_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (part_number) DO UPDATE
		SET name = EXCLUDED.name,
		    unit_cost = EXCLUDED.unit_cost,
		    supplier_name = EXCLUDED.supplier_name,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, part_number, name, required_for_prewire, required_for_trim,
		          unit_cost, supplier_name, created_at, updated_at, (created_at = updated_at)`

	var item models.CatalogItem
	var created bool
	err := r.db.QueryRow(ctx, query, uuid.New(), partNumber, name, unitCost, supplierName, now).Scan(
		&item.ID, &item.PartNumber, &item.Name,
		&item.RequiredForPrewire, &item.RequiredForTrim,
		&item.UnitCost, &item.SupplierName,
		&item.CreatedAt, &item.UpdatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert catalog item: %w", err)
	}
	return &item, created, nil
}

var _ CatalogRepository = (*catalogRepository)(nil)
