package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// matchKeySeparator joins key segments. The unit separator control character
// cannot appear in catalog part numbers, room ids, or equipment names.
const matchKeySeparator = "\x1f"

// BuildMatchKey derives the composite identity key used to re-associate
// wire-drop links with newly imported equipment. The proposal feed carries no
// persistent identifiers, so identity is heuristic: two rows are "the same
// line item" when their stable descriptive fields agree. Deterministic and
// total; absent fields contribute an empty segment.
func BuildMatchKey(catalogItemID, roomID *uuid.UUID, side models.InstallationSide, name string) string {
	segments := [4]string{"", "", string(side), strings.ToLower(strings.TrimSpace(name))}
	if catalogItemID != nil {
		segments[0] = catalogItemID.String()
	}
	if roomID != nil {
		segments[1] = roomID.String()
	}
	return strings.Join(segments[:], matchKeySeparator)
}

// MatchKeyForItem builds the match key from an equipment row.
func MatchKeyForItem(item *models.EquipmentItem) string {
	return BuildMatchKey(item.CatalogItemID, item.RoomID, item.InstallationSide, item.Name)
}
