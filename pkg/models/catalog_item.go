package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem is a shared catalog entry keyed by the supplier's external
// part number. Catalog entries outlive any single project; reimports sync
// cost and naming onto existing entries rather than duplicating them.
type CatalogItem struct {
	ID                 uuid.UUID       `json:"id"`
	PartNumber         string          `json:"part_number"`
	Name               string          `json:"name"`
	RequiredForPrewire bool            `json:"required_for_prewire"`
	RequiredForTrim    bool            `json:"required_for_trim"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	SupplierName       string          `json:"supplier_name"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
