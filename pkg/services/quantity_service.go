package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/repositories"
)

// QuantityService reacts to order and receipt events by writing aggregate
// quantities onto equipment rows. Calls are additive; the surrounding UI
// issues one call per confirmed physical action, so idempotency is the
// caller's responsibility. Every successful call invalidates the project's
// progress cache entry before returning.
type QuantityService interface {
	// ApplyOrder adds deltaOrdered to the item's ordered quantity. Negative
	// deltas are operator corrections; the quantity clamps at zero.
	ApplyOrder(ctx context.Context, equipmentID uuid.UUID, deltaOrdered int) (*models.EquipmentItem, error)

	// ApplyReceipt adds deltaReceived to the item's received quantity.
	// Receiving more than was ordered is field reality exceeding paperwork:
	// logged and surfaced, never rejected.
	ApplyReceipt(ctx context.Context, equipmentID uuid.UUID, deltaReceived int) (*models.EquipmentItem, error)

	// ApplyFullReceipt sets received = ordered for every phase-eligible item
	// with a positive ordered quantity (the "receive all" action). Returns
	// the number of items updated.
	ApplyFullReceipt(ctx context.Context, projectID uuid.UUID, phase models.Phase) (int, error)
}

type quantityService struct {
	equipmentRepo repositories.EquipmentRepository
	cache         CacheInvalidator
	logger        *zap.Logger
}

// NewQuantityService creates a new QuantityService.
func NewQuantityService(equipmentRepo repositories.EquipmentRepository, cache CacheInvalidator, logger *zap.Logger) QuantityService {
	return &quantityService{
		equipmentRepo: equipmentRepo,
		cache:         cache,
		logger:        logger,
	}
}

func (s *quantityService) ApplyOrder(ctx context.Context, equipmentID uuid.UUID, deltaOrdered int) (*models.EquipmentItem, error) {
	item, err := s.equipmentRepo.AddOrdered(ctx, equipmentID, deltaOrdered)
	if err != nil {
		return nil, fmt.Errorf("failed to apply order delta: %w", err)
	}

	s.warnOnOverReceipt(item)
	s.cache.Invalidate(ctx, item.ProjectID)
	return item, nil
}

func (s *quantityService) ApplyReceipt(ctx context.Context, equipmentID uuid.UUID, deltaReceived int) (*models.EquipmentItem, error) {
	item, err := s.equipmentRepo.AddReceived(ctx, equipmentID, deltaReceived)
	if err != nil {
		return nil, fmt.Errorf("failed to apply receipt delta: %w", err)
	}

	s.warnOnOverReceipt(item)
	s.cache.Invalidate(ctx, item.ProjectID)
	return item, nil
}

func (s *quantityService) ApplyFullReceipt(ctx context.Context, projectID uuid.UUID, phase models.Phase) (int, error) {
	updated, err := s.equipmentRepo.ReceiveAllForPhase(ctx, projectID, phase)
	if err != nil {
		return 0, fmt.Errorf("failed to receive all for phase %s: %w", phase, err)
	}

	s.cache.Invalidate(ctx, projectID)
	s.logger.Info("Applied full receipt",
		zap.String("project_id", projectID.String()),
		zap.String("phase", string(phase)),
		zap.Int("updated", updated))
	return updated, nil
}

// warnOnOverReceipt surfaces the soft invariant received <= ordered.
func (s *quantityService) warnOnOverReceipt(item *models.EquipmentItem) {
	if item.ReceivedQuantity > item.OrderedQuantity {
		s.logger.Warn("Received quantity exceeds ordered quantity",
			zap.String("equipment_id", item.ID.String()),
			zap.String("name", item.Name),
			zap.Int("ordered", item.OrderedQuantity),
			zap.Int("received", item.ReceivedQuantity))
	}
}
