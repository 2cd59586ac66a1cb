package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/repositories"
)

// MilestoneService computes weighted completion percentages for a project.
type MilestoneService interface {
	// Compute derives the full milestone bundle from current equipment and
	// installation-stage state. Pure with respect to its inputs; safe to
	// call concurrently and repeatedly. A store read failure propagates to
	// the caller and is never cached.
	Compute(ctx context.Context, projectID uuid.UUID) (*models.MilestonePercentageBundle, error)
}

type milestoneService struct {
	equipmentRepo repositories.EquipmentRepository
	wireDropRepo  repositories.WireDropRepository
	logger        *zap.Logger
}

// NewMilestoneService creates a new MilestoneService.
func NewMilestoneService(
	equipmentRepo repositories.EquipmentRepository,
	wireDropRepo repositories.WireDropRepository,
	logger *zap.Logger,
) MilestoneService {
	return &milestoneService{
		equipmentRepo: equipmentRepo,
		wireDropRepo:  wireDropRepo,
		logger:        logger,
	}
}

// Compute fetches the shared inputs once, then runs every gauge as its own
// goroutine. The gauges only read the shared snapshot and each writes a
// distinct field of the bundle, so the fan-out needs no locking. Sequential
// computation here is a known dashboard killer; keep the fan-out.
func (s *milestoneService) Compute(ctx context.Context, projectID uuid.UUID) (*models.MilestonePercentageBundle, error) {
	var (
		items    []*models.EquipmentItem
		drops    []*models.WireDrop
		itemsErr error
		dropsErr error
	)

	var fetch sync.WaitGroup
	fetch.Add(2)
	go func() {
		defer fetch.Done()
		items, itemsErr = s.equipmentRepo.ListByProject(ctx, projectID)
	}()
	go func() {
		defer fetch.Done()
		drops, dropsErr = s.wireDropRepo.ListByProject(ctx, projectID)
	}()
	fetch.Wait()

	if itemsErr != nil {
		return nil, fmt.Errorf("failed to load equipment for rollup: %w", itemsErr)
	}
	if dropsErr != nil {
		return nil, fmt.Errorf("failed to load wire drops for rollup: %w", dropsErr)
	}

	var bundle models.MilestonePercentageBundle
	gauges := []func(){
		func() { bundle.Planning = stagesPercentage(drops, func(d *models.WireDrop) bool { return d.PlanComplete }) },
		func() { bundle.PrewireOrders = ordersPercentage(items, models.PhasePrewire) },
		func() { bundle.PrewireReceiving = receivingPercentage(items, models.PhasePrewire) },
		func() { bundle.PrewireStages = stagesPercentage(drops, func(d *models.WireDrop) bool { return d.PrewireComplete }) },
		func() { bundle.TrimOrders = ordersPercentage(items, models.PhaseTrim) },
		func() { bundle.TrimReceiving = receivingPercentage(items, models.PhaseTrim) },
		func() { bundle.TrimStages = stagesPercentage(drops, func(d *models.WireDrop) bool { return d.TrimComplete }) },
		func() { bundle.Commissioning = stagesPercentage(drops, func(d *models.WireDrop) bool { return d.CommissionComplete }) },
		func() {
			bundle.Prewire = phaseRollup(items, drops, models.PhasePrewire,
				func(d *models.WireDrop) bool { return d.PrewireComplete })
		},
		func() {
			bundle.Trim = phaseRollup(items, drops, models.PhaseTrim,
				func(d *models.WireDrop) bool { return d.TrimComplete })
		},
	}

	var wg sync.WaitGroup
	wg.Add(len(gauges))
	for _, gauge := range gauges {
		go func() {
			defer wg.Done()
			gauge()
		}()
	}
	wg.Wait()

	return &bundle, nil
}

// percentage rounds n/total to the nearest whole percent. An empty
// denominator is "not started", never "complete": zero, not NaN, not 100.
func percentage(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

// ordersPercentage is the share of phase-eligible items with anything on
// order.
func ordersPercentage(items []*models.EquipmentItem, phase models.Phase) int {
	eligible, ordered := 0, 0
	for _, item := range items {
		if !item.EligibleFor(phase) {
			continue
		}
		eligible++
		if item.OrderedQuantity > 0 {
			ordered++
		}
	}
	return percentage(ordered, eligible)
}

// receivingPercentage is the share of phase-eligible items fully received.
// An item with nothing ordered never counts as received, whatever its
// received quantity says.
func receivingPercentage(items []*models.EquipmentItem, phase models.Phase) int {
	eligible, received := 0, 0
	for _, item := range items {
		if !item.EligibleFor(phase) {
			continue
		}
		eligible++
		if item.OrderedQuantity > 0 && item.ReceivedQuantity >= item.OrderedQuantity {
			received++
		}
	}
	return percentage(received, eligible)
}

// stagesPercentage is the share of installation records with the given stage
// marked complete.
func stagesPercentage(drops []*models.WireDrop, complete func(*models.WireDrop) bool) int {
	done := 0
	for _, d := range drops {
		if complete(d) {
			done++
		}
	}
	return percentage(done, len(drops))
}

// phaseRollup combines the three phase gauges into one weighted percentage,
// recomputed from the shared snapshot so it depends on no other gauge's
// result.
func phaseRollup(items []*models.EquipmentItem, drops []*models.WireDrop, phase models.Phase, stageComplete func(*models.WireDrop) bool) models.PhaseRollup {
	orders := ordersPercentage(items, phase)
	receiving := receivingPercentage(items, phase)
	stages := stagesPercentage(drops, stageComplete)

	weighted := float64(orders)*models.RollupWeightOrders +
		float64(receiving)*models.RollupWeightReceiving +
		float64(stages)*models.RollupWeightStages

	return models.PhaseRollup{
		Orders:    orders,
		Receiving: receiving,
		Stages:    stages,
		Percent:   int(math.Round(weighted)),
	}
}
