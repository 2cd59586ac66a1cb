package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// stubEquipmentRepo is an embeddable no-op base so test doubles only
// implement the methods their test exercises.
type stubEquipmentRepo struct{}

func (stubEquipmentRepo) Get(_ context.Context, _ uuid.UUID) (*models.EquipmentItem, error) {
	return nil, nil
}
func (stubEquipmentRepo) ListByProject(_ context.Context, _ uuid.UUID) ([]*models.EquipmentItem, error) {
	return nil, nil
}
func (stubEquipmentRepo) InsertBatch(_ context.Context, _ []*models.EquipmentItem) error {
	return nil
}
func (stubEquipmentRepo) DeleteBatchTagged(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}
func (stubEquipmentRepo) AddOrdered(_ context.Context, _ uuid.UUID, _ int) (*models.EquipmentItem, error) {
	return nil, nil
}
func (stubEquipmentRepo) AddReceived(_ context.Context, _ uuid.UUID, _ int) (*models.EquipmentItem, error) {
	return nil, nil
}
func (stubEquipmentRepo) ReceiveAllForPhase(_ context.Context, _ uuid.UUID, _ models.Phase) (int, error) {
	return 0, nil
}

// recordingCache counts cache invalidations per project.
type recordingCache struct {
	invalidated []uuid.UUID
}

func (c *recordingCache) Invalidate(_ context.Context, projectID uuid.UUID) {
	c.invalidated = append(c.invalidated, projectID)
}
