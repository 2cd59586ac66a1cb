package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
)

// LinkSnapshot captures one equipment link immediately before the equipment
// it points at is deleted by a reimport. The descriptive fields are retained
// so that a link which cannot be restored can still be named to the operator.
// Snapshots are transient; they never touch the store.
type LinkSnapshot struct {
	WireDropID uuid.UUID
	Side       InstallationSide
	SortOrder  int
	MatchKey   string

	// Descriptive detail from the old equipment row, for failure reporting.
	EquipmentName string
	PartNumber    string
	RoomName      string
}

// LinkFailure records one snapshotted link that could not be restored
// against the newly imported equipment set.
type LinkFailure struct {
	WireDropID    uuid.UUID `json:"wire_drop_id"`
	EquipmentName string    `json:"equipment_name"`
	PartNumber    string    `json:"part_number,omitempty"`
	RoomName      string    `json:"room_name,omitempty"`
	Side          string    `json:"side"`
	Reason        string    `json:"reason"`
}

// ReconciliationReport summarizes one reimport run. It is always surfaced to
// the operator in full; silent loss of a cross-reference is the one outcome
// this engine forbids.
type ReconciliationReport struct {
	ImportBatchID  uuid.UUID     `json:"import_batch_id"`
	Inserted       int           `json:"inserted"`
	RoomsCreated   int           `json:"rooms_created"`
	CatalogCreated int           `json:"catalog_created"`
	SkippedLabor   int           `json:"skipped_labor"`
	LinksRestored  int           `json:"links_restored"`
	LinksFailed    []LinkFailure `json:"links_failed"`
	RowErrors      []RowError    `json:"row_errors"`
}

// Summary renders the operator-facing one-line outcome, e.g.
// "42 items imported, 12 links restored, 3 links could not be matched".
func (r *ReconciliationReport) Summary() string {
	s := fmt.Sprintf("%d %s imported, %d %s restored",
		r.Inserted, pluralize("item", r.Inserted),
		r.LinksRestored, pluralize("link", r.LinksRestored))
	if len(r.LinksFailed) > 0 {
		s += fmt.Sprintf(", %d %s could not be matched",
			len(r.LinksFailed), pluralize("link", len(r.LinksFailed)))
	}
	if len(r.RowErrors) > 0 {
		s += fmt.Sprintf(", %d %s skipped",
			len(r.RowErrors), pluralize("row", len(r.RowErrors)))
	}
	return s
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return inflection.Plural(word)
}
