package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParsedRow is one line of a parsed proposal feed. The proposal source
// re-emits the full equipment list with no persistent identifiers, so these
// rows carry descriptive fields only. Rows with IsLabor set are excluded
// from equipment reconciliation entirely.
type ParsedRow struct {
	RoomName         string          `json:"room_name"`
	InstallationSide string          `json:"installation_side"`
	PartNumber       string          `json:"part_number"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	SupplierName     string          `json:"supplier_name"`
	IsLabor          bool            `json:"is_labor"`
}

// Validate checks the fields reconciliation cannot proceed without. It does
// not reject unusual-but-workable data; the soft-invariant policy is to
// surface, not refuse.
func (r *ParsedRow) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("missing equipment name")
	}
	if r.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", r.Quantity)
	}
	return nil
}

// RowError records a proposal row that was skipped during parse or import.
// Bad rows never abort the operation; they are listed in the report.
type RowError struct {
	Line   int    `json:"line"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}
