//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/database"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/testhelpers"
)

// equipmentTestContext holds test dependencies for equipment repository tests.
type equipmentTestContext struct {
	t         *testing.T
	db        *database.DB
	projects  ProjectRepository
	rooms     RoomRepository
	catalog   CatalogRepository
	equipment EquipmentRepository
	links     EquipmentLinkRepository
	wireDrops WireDropRepository
	projectID uuid.UUID
}

func setupEquipmentTest(t *testing.T) *equipmentTestContext {
	testDB := testhelpers.GetTestDB(t)
	db := &database.DB{Pool: testDB.Pool}

	tc := &equipmentTestContext{
		t:         t,
		db:        db,
		projects:  NewProjectRepository(db),
		rooms:     NewRoomRepository(db),
		catalog:   NewCatalogRepository(db),
		equipment: NewEquipmentRepository(db),
		links:     NewEquipmentLinkRepository(db),
		wireDrops: NewWireDropRepository(db),
		projectID: uuid.New(),
	}

	ctx := context.Background()
	if err := tc.projects.Create(ctx, &models.Project{ID: tc.projectID, Name: "Integration Test Project"}); err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	t.Cleanup(tc.cleanup)
	return tc
}

// cleanup removes test data. Equipment links cascade from equipment.
func (tc *equipmentTestContext) cleanup() {
	ctx := context.Background()
	_, _ = tc.db.Exec(ctx, "DELETE FROM equipment_items WHERE project_id = $1", tc.projectID)
	_, _ = tc.db.Exec(ctx, "DELETE FROM wire_drops WHERE project_id = $1", tc.projectID)
	_, _ = tc.db.Exec(ctx, "DELETE FROM rooms WHERE project_id = $1", tc.projectID)
	_, _ = tc.db.Exec(ctx, "DELETE FROM projects WHERE id = $1", tc.projectID)
	_, _ = tc.db.Exec(ctx, "DELETE FROM catalog_items WHERE part_number LIKE 'PN-%'")
}

// createCatalogItem upserts a catalog entry and optionally marks its phase
// eligibility flags, which the upsert itself never touches.
func (tc *equipmentTestContext) createCatalogItem(ctx context.Context, partNumber string, prewire, trim bool) *models.CatalogItem {
	tc.t.Helper()
	item, _, err := tc.catalog.Upsert(ctx, partNumber, "Part "+partNumber, decimal.NewFromInt(10), "TestCo")
	if err != nil {
		tc.t.Fatalf("failed to upsert catalog item: %v", err)
	}
	if prewire || trim {
		_, err = tc.db.Exec(ctx,
			"UPDATE catalog_items SET required_for_prewire = $2, required_for_trim = $3 WHERE id = $1",
			item.ID, prewire, trim)
		if err != nil {
			tc.t.Fatalf("failed to set eligibility flags: %v", err)
		}
		item.RequiredForPrewire = prewire
		item.RequiredForTrim = trim
	}
	return item
}

func (tc *equipmentTestContext) insertEquipment(ctx context.Context, items ...*models.EquipmentItem) {
	tc.t.Helper()
	if err := tc.equipment.InsertBatch(ctx, items); err != nil {
		tc.t.Fatalf("failed to insert equipment: %v", err)
	}
}

func TestEquipmentRepository_InsertBatchAndList(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	catalogItem := tc.createCatalogItem(ctx, "PN-LIST-1", true, false)
	batchID := uuid.New()

	tc.insertEquipment(ctx,
		&models.EquipmentItem{
			ProjectID:        tc.projectID,
			CatalogItemID:    &catalogItem.ID,
			Name:             "Keypad",
			InstallationSide: models.SideRoomEnd,
			PlannedQuantity:  1,
			UnitCost:         decimal.NewFromInt(10),
			ImportBatchID:    &batchID,
		},
		&models.EquipmentItem{
			ProjectID:        tc.projectID,
			Name:             "Manual Rack",
			InstallationSide: models.SideHeadEnd,
			PlannedQuantity:  1,
		},
	)

	items, err := tc.equipment.ListByProject(ctx, tc.projectID)
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	var keypad, rack *models.EquipmentItem
	for _, item := range items {
		switch item.Name {
		case "Keypad":
			keypad = item
		case "Manual Rack":
			rack = item
		}
	}
	if keypad == nil || rack == nil {
		t.Fatal("expected both inserted items in list")
	}

	// Catalog join carries eligibility; uncataloged rows default to false.
	if !keypad.RequiredForPrewire || keypad.RequiredForTrim {
		t.Errorf("expected keypad prewire-only eligibility, got prewire=%v trim=%v",
			keypad.RequiredForPrewire, keypad.RequiredForTrim)
	}
	if rack.RequiredForPrewire || rack.RequiredForTrim {
		t.Error("expected uncataloged item to be eligible for no phase")
	}
	if !keypad.IsBatchTagged() || rack.IsBatchTagged() {
		t.Error("expected batch tag only on the imported item")
	}
}

func TestEquipmentRepository_DeleteBatchTagged_CascadesLinks(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	batchID := uuid.New()
	tagged := &models.EquipmentItem{
		ProjectID: tc.projectID, Name: "Imported Panel",
		InstallationSide: models.SideUnspecified, PlannedQuantity: 1,
		ImportBatchID: &batchID,
	}
	manual := &models.EquipmentItem{
		ProjectID: tc.projectID, Name: "Hand-entered Amp",
		InstallationSide: models.SideUnspecified, PlannedQuantity: 1,
	}
	tc.insertEquipment(ctx, tagged, manual)

	drop := &models.WireDrop{ProjectID: tc.projectID, Name: "Drop 1"}
	if err := tc.wireDrops.Create(ctx, drop); err != nil {
		t.Fatalf("failed to create wire drop: %v", err)
	}
	created, err := tc.links.Create(ctx, &models.EquipmentLink{
		WireDropID: drop.ID, EquipmentID: tagged.ID, Side: models.SideRoomEnd,
	})
	if err != nil || !created {
		t.Fatalf("failed to create link: created=%v err=%v", created, err)
	}

	deleted, err := tc.equipment.DeleteBatchTagged(ctx, tc.projectID)
	if err != nil {
		t.Fatalf("DeleteBatchTagged failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted item, got %d", deleted)
	}

	// Manual equipment survives; the link went with its equipment.
	if _, err := tc.equipment.Get(ctx, manual.ID); err != nil {
		t.Errorf("expected manual equipment to survive, got %v", err)
	}
	count, err := tc.links.CountByProject(ctx, tc.projectID)
	if err != nil {
		t.Fatalf("CountByProject failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected links to cascade with equipment, got %d remaining", count)
	}
}

func TestEquipmentLinkRepository_DuplicateCreateIsNoOp(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	item := &models.EquipmentItem{
		ProjectID: tc.projectID, Name: "Speaker",
		InstallationSide: models.SideRoomEnd, PlannedQuantity: 1,
	}
	tc.insertEquipment(ctx, item)

	drop := &models.WireDrop{ProjectID: tc.projectID, Name: "Drop A"}
	if err := tc.wireDrops.Create(ctx, drop); err != nil {
		t.Fatalf("failed to create wire drop: %v", err)
	}

	link := models.EquipmentLink{WireDropID: drop.ID, EquipmentID: item.ID, Side: models.SideRoomEnd}
	created, err := tc.links.Create(ctx, &link)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	dup := models.EquipmentLink{WireDropID: drop.ID, EquipmentID: item.ID, Side: models.SideRoomEnd}
	created, err = tc.links.Create(ctx, &dup)
	if err != nil {
		t.Fatalf("duplicate create errored: %v", err)
	}
	if created {
		t.Error("expected duplicate link create to be a no-op")
	}

	links, err := tc.links.ListByWireDrop(ctx, drop.ID)
	if err != nil {
		t.Fatalf("ListByWireDrop failed: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("expected 1 link, got %d", len(links))
	}
}

func TestEquipmentRepository_AddQuantityClampsAtZero(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	item := &models.EquipmentItem{
		ProjectID: tc.projectID, Name: "Cable Spool",
		InstallationSide: models.SideUnspecified, PlannedQuantity: 1,
	}
	tc.insertEquipment(ctx, item)

	updated, err := tc.equipment.AddOrdered(ctx, item.ID, 5)
	if err != nil {
		t.Fatalf("AddOrdered failed: %v", err)
	}
	if updated.OrderedQuantity != 5 {
		t.Errorf("expected ordered=5, got %d", updated.OrderedQuantity)
	}

	updated, err = tc.equipment.AddOrdered(ctx, item.ID, -8)
	if err != nil {
		t.Fatalf("AddOrdered correction failed: %v", err)
	}
	if updated.OrderedQuantity != 0 {
		t.Errorf("expected ordered clamped to 0, got %d", updated.OrderedQuantity)
	}

	if _, err := tc.equipment.AddReceived(ctx, uuid.New(), 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown equipment, got %v", err)
	}
}

func TestEquipmentRepository_ReceiveAllForPhase(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	prewirePart := tc.createCatalogItem(ctx, "PN-RA-PRE", true, false)
	trimPart := tc.createCatalogItem(ctx, "PN-RA-TRIM", false, true)

	eligible := &models.EquipmentItem{
		ProjectID: tc.projectID, CatalogItemID: &prewirePart.ID, Name: "Bracket",
		InstallationSide: models.SideUnspecified, PlannedQuantity: 1, OrderedQuantity: 4,
	}
	wrongPhase := &models.EquipmentItem{
		ProjectID: tc.projectID, CatalogItemID: &trimPart.ID, Name: "Faceplate",
		InstallationSide: models.SideUnspecified, PlannedQuantity: 1, OrderedQuantity: 2,
	}
	unordered := &models.EquipmentItem{
		ProjectID: tc.projectID, CatalogItemID: &prewirePart.ID, Name: "Conduit",
		InstallationSide: models.SideUnspecified, PlannedQuantity: 1,
	}
	tc.insertEquipment(ctx, eligible, wrongPhase, unordered)

	updated, err := tc.equipment.ReceiveAllForPhase(ctx, tc.projectID, models.PhasePrewire)
	if err != nil {
		t.Fatalf("ReceiveAllForPhase failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("expected 1 updated item, got %d", updated)
	}

	got, err := tc.equipment.Get(ctx, eligible.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ReceivedQuantity != 4 {
		t.Errorf("expected received=4, got %d", got.ReceivedQuantity)
	}
	got, _ = tc.equipment.Get(ctx, wrongPhase.ID)
	if got.ReceivedQuantity != 0 {
		t.Errorf("expected trim-phase item untouched, got received=%d", got.ReceivedQuantity)
	}
}

func TestRoomRepository_GetByNameIsCaseInsensitive(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	room := &models.Room{ProjectID: tc.projectID, Name: "Master Bedroom"}
	if err := tc.rooms.Create(ctx, room); err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	got, err := tc.rooms.GetByName(ctx, tc.projectID, "MASTER bedroom")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if got.ID != room.ID {
		t.Errorf("expected room %s, got %s", room.ID, got.ID)
	}

	if _, err := tc.rooms.GetByName(ctx, tc.projectID, "Garage"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestCatalogRepository_UpsertPreservesCuratedFlags(t *testing.T) {
	tc := setupEquipmentTest(t)
	ctx := context.Background()

	item, created, err := tc.catalog.Upsert(ctx, "PN-UPSERT-1", "Original Name", decimal.NewFromInt(20), "SupplierA")
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !created {
		t.Error("expected first upsert to report created")
	}

	_, err = tc.db.Exec(ctx,
		"UPDATE catalog_items SET required_for_prewire = true WHERE id = $1", item.ID)
	if err != nil {
		t.Fatalf("failed to curate flag: %v", err)
	}

	updated, created, err := tc.catalog.Upsert(ctx, "PN-UPSERT-1", "Renamed", decimal.NewFromInt(25), "SupplierB")
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if created {
		t.Error("expected second upsert to report existing")
	}
	if updated.Name != "Renamed" || updated.SupplierName != "SupplierB" {
		t.Errorf("expected descriptive fields synced, got name=%q supplier=%q", updated.Name, updated.SupplierName)
	}
	if !updated.RequiredForPrewire {
		t.Error("expected curated eligibility flag to survive upsert")
	}
}
