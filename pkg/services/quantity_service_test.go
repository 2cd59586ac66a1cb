package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// fakeQuantityRepo applies deltas against a single in-memory item.
type fakeQuantityRepo struct {
	stubEquipmentRepo
	item           *models.EquipmentItem
	receiveAllHits int
}

func (r *fakeQuantityRepo) AddOrdered(_ context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error) {
	if r.item == nil || r.item.ID != id {
		return nil, apperrors.ErrNotFound
	}
	r.item.OrderedQuantity += delta
	if r.item.OrderedQuantity < 0 {
		r.item.OrderedQuantity = 0
	}
	return r.item, nil
}

func (r *fakeQuantityRepo) AddReceived(_ context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error) {
	if r.item == nil || r.item.ID != id {
		return nil, apperrors.ErrNotFound
	}
	r.item.ReceivedQuantity += delta
	if r.item.ReceivedQuantity < 0 {
		r.item.ReceivedQuantity = 0
	}
	return r.item, nil
}

func (r *fakeQuantityRepo) ReceiveAllForPhase(_ context.Context, _ uuid.UUID, _ models.Phase) (int, error) {
	r.receiveAllHits++
	return 7, nil
}

func TestQuantityService_ApplyOrderAddsAndInvalidates(t *testing.T) {
	item := &models.EquipmentItem{ID: uuid.New(), ProjectID: uuid.New(), OrderedQuantity: 2}
	repo := &fakeQuantityRepo{item: item}
	cache := &recordingCache{}
	svc := NewQuantityService(repo, cache, zap.NewNop())

	updated, err := svc.ApplyOrder(context.Background(), item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.OrderedQuantity)
	assert.Equal(t, []uuid.UUID{item.ProjectID}, cache.invalidated)
}

func TestQuantityService_ApplyReceiptIsAdditiveNotIdempotent(t *testing.T) {
	item := &models.EquipmentItem{ID: uuid.New(), ProjectID: uuid.New(), OrderedQuantity: 10}
	svc := NewQuantityService(&fakeQuantityRepo{item: item}, &recordingCache{}, zap.NewNop())

	// One call per confirmed physical action; duplicates double-count.
	_, err := svc.ApplyReceipt(context.Background(), item.ID, 4)
	require.NoError(t, err)
	updated, err := svc.ApplyReceipt(context.Background(), item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.ReceivedQuantity)
}

func TestQuantityService_NegativeCorrectionClampsAtZero(t *testing.T) {
	item := &models.EquipmentItem{ID: uuid.New(), ProjectID: uuid.New(), ReceivedQuantity: 2}
	svc := NewQuantityService(&fakeQuantityRepo{item: item}, &recordingCache{}, zap.NewNop())

	updated, err := svc.ApplyReceipt(context.Background(), item.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.ReceivedQuantity)
}

func TestQuantityService_OverReceiptWarnsButSucceeds(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	item := &models.EquipmentItem{ID: uuid.New(), ProjectID: uuid.New(), OrderedQuantity: 2}
	svc := NewQuantityService(&fakeQuantityRepo{item: item}, &recordingCache{}, zap.New(core))

	updated, err := svc.ApplyReceipt(context.Background(), item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.ReceivedQuantity)
	assert.Equal(t, 1, logs.FilterMessage("Received quantity exceeds ordered quantity").Len())
}

func TestQuantityService_ApplyFullReceiptInvalidatesProject(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeQuantityRepo{}
	cache := &recordingCache{}
	svc := NewQuantityService(repo, cache, zap.NewNop())

	updated, err := svc.ApplyFullReceipt(context.Background(), projectID, models.PhasePrewire)
	require.NoError(t, err)
	assert.Equal(t, 7, updated)
	assert.Equal(t, 1, repo.receiveAllHits)
	assert.Equal(t, []uuid.UUID{projectID}, cache.invalidated)
}

func TestQuantityService_UnknownEquipmentReturnsNotFound(t *testing.T) {
	svc := NewQuantityService(&fakeQuantityRepo{}, &recordingCache{}, zap.NewNop())

	_, err := svc.ApplyReceipt(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
