package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/repositories"
)

// CacheInvalidator is the slice of the progress cache that mutating services
// need.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, projectID uuid.UUID)
}

// ReconciliationService re-imports a project's equipment list from the
// proposal feed while preserving operator-entered wire-drop links.
type ReconciliationService interface {
	// Reimport runs the four reconciliation phases in strict order:
	// snapshot, delete, reimport, restore. It is not transactional across
	// phases; two concurrent reimports of the same project must be
	// serialized by the caller.
	Reimport(ctx context.Context, projectID uuid.UUID, rows []models.ParsedRow) (*models.ReconciliationReport, error)
}

type reconciliationService struct {
	equipmentRepo repositories.EquipmentRepository
	roomRepo      repositories.RoomRepository
	catalogRepo   repositories.CatalogRepository
	linkRepo      repositories.EquipmentLinkRepository
	cache         CacheInvalidator
	maxQuantity   int
	logger        *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService.
// maxQuantity caps instance expansion for a single proposal row.
func NewReconciliationService(
	equipmentRepo repositories.EquipmentRepository,
	roomRepo repositories.RoomRepository,
	catalogRepo repositories.CatalogRepository,
	linkRepo repositories.EquipmentLinkRepository,
	cache CacheInvalidator,
	maxQuantity int,
	logger *zap.Logger,
) ReconciliationService {
	return &reconciliationService{
		equipmentRepo: equipmentRepo,
		roomRepo:      roomRepo,
		catalogRepo:   catalogRepo,
		linkRepo:      linkRepo,
		cache:         cache,
		maxQuantity:   maxQuantity,
		logger:        logger,
	}
}

func (s *reconciliationService) Reimport(ctx context.Context, projectID uuid.UUID, rows []models.ParsedRow) (*models.ReconciliationReport, error) {
	report := &models.ReconciliationReport{ImportBatchID: uuid.New()}

	// Phase 1: snapshot. Pure read; a failure here aborts with zero side
	// effects.
	snapshots, err := s.snapshotLinks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("snapshot phase failed, nothing changed: %w", err)
	}

	// Phase 2: delete. Links on batch-tagged equipment cascade away, which
	// is exactly why phase 1 must have run first.
	deleted, err := s.equipmentRepo.DeleteBatchTagged(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("delete phase failed: %w", err)
	}

	// Phase 3: reimport. A store failure after the delete leaves the
	// project without equipment; that state is surfaced, never silent.
	items, err := s.buildImportItems(ctx, projectID, rows, report)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProjectEmptyAfterDelete, err)
	}
	if err := s.equipmentRepo.InsertBatch(ctx, items); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProjectEmptyAfterDelete, err)
	}
	report.Inserted = len(items)

	// Equipment state changed even if link restoration turns out partial.
	s.cache.Invalidate(ctx, projectID)

	// Phase 4: restore. Per-link misses and store errors are report
	// entries, not failures.
	s.restoreLinks(ctx, snapshots, items, report)

	s.logger.Info("Reimport complete",
		zap.String("project_id", projectID.String()),
		zap.String("import_batch_id", report.ImportBatchID.String()),
		zap.Int("deleted", deleted),
		zap.Int("inserted", report.Inserted),
		zap.Int("links_restored", report.LinksRestored),
		zap.Int("links_failed", len(report.LinksFailed)),
		zap.Int("rows_skipped", len(report.RowErrors)))

	return report, nil
}

// snapshotLinks captures every link pointing at batch-tagged equipment,
// with the match key computed from the old row and enough descriptive data
// to name a link that later fails to restore.
func (s *reconciliationService) snapshotLinks(ctx context.Context, projectID uuid.UUID) ([]models.LinkSnapshot, error) {
	linked, err := s.linkRepo.ListBatchTagged(ctx, projectID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.LinkSnapshot, 0, len(linked))
	for _, row := range linked {
		snapshots = append(snapshots, models.LinkSnapshot{
			WireDropID:    row.Link.WireDropID,
			Side:          row.Link.Side,
			SortOrder:     row.Link.SortOrder,
			MatchKey:      BuildMatchKey(row.CatalogItemID, row.RoomID, row.InstallationSide, row.EquipmentName),
			EquipmentName: row.EquipmentName,
			PartNumber:    row.PartNumber,
			RoomName:      row.RoomName,
		})
	}
	return snapshots, nil
}

// buildImportItems converts parsed rows into equipment rows tagged with the
// report's batch id, creating rooms and syncing catalog entries as it goes.
// Bad rows become report entries and are skipped; store errors abort.
func (s *reconciliationService) buildImportItems(ctx context.Context, projectID uuid.UUID, rows []models.ParsedRow, report *models.ReconciliationReport) ([]*models.EquipmentItem, error) {
	batchID := report.ImportBatchID
	roomsByName := make(map[string]*models.Room)

	var items []*models.EquipmentItem
	for i := range rows {
		row := &rows[i]
		line := i + 1

		if row.IsLabor {
			report.SkippedLabor++
			continue
		}
		if err := row.Validate(); err != nil {
			report.RowErrors = append(report.RowErrors, models.RowError{
				Line: line, Name: row.Name, Reason: err.Error(),
			})
			continue
		}
		if row.Quantity > s.maxQuantity {
			report.RowErrors = append(report.RowErrors, models.RowError{
				Line: line, Name: row.Name,
				Reason: fmt.Sprintf("quantity %d exceeds per-row limit %d", row.Quantity, s.maxQuantity),
			})
			continue
		}

		var roomID *uuid.UUID
		if row.RoomName != "" {
			room, created, err := s.resolveRoom(ctx, projectID, row.RoomName, roomsByName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve room %q: %w", row.RoomName, err)
			}
			if created {
				report.RoomsCreated++
			}
			roomID = &room.ID
		}

		var catalogItemID *uuid.UUID
		if row.PartNumber != "" {
			entry, created, err := s.catalogRepo.Upsert(ctx, row.PartNumber, row.Name, row.UnitCost, row.SupplierName)
			if err != nil {
				return nil, fmt.Errorf("failed to sync catalog entry %q: %w", row.PartNumber, err)
			}
			if created {
				report.CatalogCreated++
			}
			catalogItemID = &entry.ID
		}

		side := models.ParseInstallationSide(row.InstallationSide)

		// A quantity above one becomes that many individual instances
		// sharing a group id, so each can be linked and staged on its own.
		var groupID *uuid.UUID
		if row.Quantity > 1 {
			id := uuid.New()
			groupID = &id
		}
		for n := 1; n <= row.Quantity; n++ {
			items = append(items, &models.EquipmentItem{
				ProjectID:        projectID,
				CatalogItemID:    catalogItemID,
				Name:             row.Name,
				RoomID:           roomID,
				InstallationSide: side,
				PlannedQuantity:  1,
				UnitCost:         row.UnitCost,
				SupplierName:     row.SupplierName,
				InstanceGroupID:  groupID,
				InstanceNumber:   n,
				ImportBatchID:    &batchID,
			})
		}
	}
	return items, nil
}

func (s *reconciliationService) resolveRoom(ctx context.Context, projectID uuid.UUID, name string, cache map[string]*models.Room) (*models.Room, bool, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if room, ok := cache[key]; ok {
		return room, false, nil
	}

	room, err := s.roomRepo.GetByName(ctx, projectID, name)
	if err == nil {
		cache[key] = room
		return room, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	room = &models.Room{ProjectID: projectID, Name: strings.TrimSpace(name)}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, false, err
	}
	cache[key] = room
	return room, true, nil
}

// restoreLinks re-creates snapshotted links against the new equipment set.
// When a match key collides across new rows, the first in import order wins;
// ambiguous but deterministic.
func (s *reconciliationService) restoreLinks(ctx context.Context, snapshots []models.LinkSnapshot, items []*models.EquipmentItem, report *models.ReconciliationReport) {
	byKey := make(map[string]uuid.UUID, len(items))
	for _, item := range items {
		key := MatchKeyForItem(item)
		if _, ok := byKey[key]; !ok {
			byKey[key] = item.ID
		}
	}

	for _, snap := range snapshots {
		newID, ok := byKey[snap.MatchKey]
		if !ok {
			report.LinksFailed = append(report.LinksFailed, models.LinkFailure{
				WireDropID:    snap.WireDropID,
				EquipmentName: snap.EquipmentName,
				PartNumber:    snap.PartNumber,
				RoomName:      snap.RoomName,
				Side:          string(snap.Side),
				Reason:        "not found in new import",
			})
			continue
		}

		_, err := s.linkRepo.Create(ctx, &models.EquipmentLink{
			WireDropID:  snap.WireDropID,
			EquipmentID: newID,
			Side:        snap.Side,
			SortOrder:   snap.SortOrder,
		})
		if err != nil {
			report.LinksFailed = append(report.LinksFailed, models.LinkFailure{
				WireDropID:    snap.WireDropID,
				EquipmentName: snap.EquipmentName,
				PartNumber:    snap.PartNumber,
				RoomName:      snap.RoomName,
				Side:          string(snap.Side),
				Reason:        fmt.Sprintf("store error: %v", err),
			})
			continue
		}
		// A duplicate insert means an equivalent link already exists, which
		// still counts as restored.
		report.LinksRestored++
	}
}
