package models

import (
	"time"

	"github.com/google/uuid"
)

// EquipmentLink is a cross-reference from a wire drop to an equipment item,
// tagged with which end of the run the equipment sits on. Unique on
// (WireDropID, EquipmentID, Side). Links are destroyed by cascade when their
// equipment is deleted; the reconciliation engine exists to recreate
// equivalent links after a reimport whenever possible.
type EquipmentLink struct {
	ID          uuid.UUID        `json:"id"`
	WireDropID  uuid.UUID        `json:"wire_drop_id"`
	EquipmentID uuid.UUID        `json:"equipment_id"`
	Side        InstallationSide `json:"side"`
	SortOrder   int              `json:"sort_order"`
	CreatedAt   time.Time        `json:"created_at"`
}
