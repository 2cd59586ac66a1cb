package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallationSide identifies which end of a cable run an equipment item
// belongs to.
type InstallationSide string

const (
	SideRoomEnd     InstallationSide = "room_end"
	SideHeadEnd     InstallationSide = "head_end"
	SideUnspecified InstallationSide = "unspecified"
)

// ParseInstallationSide normalizes a proposal-feed side value. Unknown values
// map to SideUnspecified rather than failing; the feed is not authoritative
// about sides.
func ParseInstallationSide(s string) InstallationSide {
	switch InstallationSide(s) {
	case SideRoomEnd, SideHeadEnd:
		return InstallationSide(s)
	default:
		return SideUnspecified
	}
}

// Phase is a procurement/installation stage used to scope eligibility for
// order and receive percentages.
type Phase string

const (
	PhasePrewire Phase = "prewire"
	PhaseTrim    Phase = "trim"
)

// ParsePhase validates a phase name from an external caller.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePrewire, PhaseTrim:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("unknown phase %q", s)
	}
}

// EquipmentItem is one physical or logical line item belonging to one project.
//
// Rows created by a proposal reimport carry an ImportBatchID and are deleted
// and recreated wholesale on the next reimport. Rows entered manually have a
// nil ImportBatchID and are never touched by reconciliation.
type EquipmentItem struct {
	ID               uuid.UUID        `json:"id"`
	ProjectID        uuid.UUID        `json:"project_id"`
	CatalogItemID    *uuid.UUID       `json:"catalog_item_id,omitempty"`
	Name             string           `json:"name"`
	RoomID           *uuid.UUID       `json:"room_id,omitempty"`
	InstallationSide InstallationSide `json:"installation_side"`
	PlannedQuantity  int              `json:"planned_quantity"`
	OrderedQuantity  int              `json:"ordered_quantity"`
	ReceivedQuantity int              `json:"received_quantity"`
	UnitCost         decimal.Decimal  `json:"unit_cost"`
	SupplierName     string           `json:"supplier_name"`
	InstanceGroupID  *uuid.UUID       `json:"instance_group_id,omitempty"`
	InstanceNumber   int              `json:"instance_number"`
	ImportBatchID    *uuid.UUID       `json:"import_batch_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Eligibility flags inherited from the catalog entry, populated by
	// repository reads that join catalog_items. Items without a catalog
	// entry are eligible for neither phase.
	RequiredForPrewire bool `json:"required_for_prewire"`
	RequiredForTrim    bool `json:"required_for_trim"`
}

// IsBatchTagged reports whether this row was produced by a proposal reimport.
func (e *EquipmentItem) IsBatchTagged() bool {
	return e.ImportBatchID != nil
}

// EligibleFor reports whether this item counts toward the given phase's
// order/receive percentages.
func (e *EquipmentItem) EligibleFor(phase Phase) bool {
	switch phase {
	case PhasePrewire:
		return e.RequiredForPrewire
	case PhaseTrim:
		return e.RequiredForTrim
	default:
		return false
	}
}

// DisplayName renders the item name with its instance position when the row
// came from a quantity-expanded proposal line, e.g. "CAT6 Drop (2 of 4)".
func (e *EquipmentItem) DisplayName(groupSize int) string {
	if e.InstanceGroupID == nil || groupSize <= 1 {
		return e.Name
	}
	return fmt.Sprintf("%s (%d of %d)", e.Name, e.InstanceNumber, groupSize)
}
