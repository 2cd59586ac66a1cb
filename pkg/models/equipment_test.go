package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstallationSide(t *testing.T) {
	assert.Equal(t, SideRoomEnd, ParseInstallationSide("room_end"))
	assert.Equal(t, SideHeadEnd, ParseInstallationSide("head_end"))
	assert.Equal(t, SideUnspecified, ParseInstallationSide(""))
	assert.Equal(t, SideUnspecified, ParseInstallationSide("rack"))
}

func TestParsePhase(t *testing.T) {
	phase, err := ParsePhase("prewire")
	require.NoError(t, err)
	assert.Equal(t, PhasePrewire, phase)

	phase, err = ParsePhase("trim")
	require.NoError(t, err)
	assert.Equal(t, PhaseTrim, phase)

	_, err = ParsePhase("commission")
	assert.Error(t, err)
}

func TestEquipmentItem_EligibleFor(t *testing.T) {
	item := EquipmentItem{RequiredForPrewire: true}
	assert.True(t, item.EligibleFor(PhasePrewire))
	assert.False(t, item.EligibleFor(PhaseTrim))
	assert.False(t, item.EligibleFor(Phase("unknown")))
}

func TestEquipmentItem_IsBatchTagged(t *testing.T) {
	batchID := uuid.New()
	assert.True(t, (&EquipmentItem{ImportBatchID: &batchID}).IsBatchTagged())
	assert.False(t, (&EquipmentItem{}).IsBatchTagged())
}

func TestEquipmentItem_DisplayName(t *testing.T) {
	groupID := uuid.New()
	item := EquipmentItem{Name: "CAT6 Drop", InstanceGroupID: &groupID, InstanceNumber: 2}

	assert.Equal(t, "CAT6 Drop (2 of 4)", item.DisplayName(4))
	assert.Equal(t, "CAT6 Drop", item.DisplayName(1))

	ungrouped := EquipmentItem{Name: "Rack", InstanceNumber: 1}
	assert.Equal(t, "Rack", ungrouped.DisplayName(3))
}
