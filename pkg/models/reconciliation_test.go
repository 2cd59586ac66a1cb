package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReconciliationReport_Summary(t *testing.T) {
	report := ReconciliationReport{Inserted: 42, LinksRestored: 12}
	assert.Equal(t, "42 items imported, 12 links restored", report.Summary())

	report.LinksFailed = []LinkFailure{{EquipmentName: "Keypad"}, {EquipmentName: "Panel"}, {EquipmentName: "Rack"}}
	assert.Equal(t, "42 items imported, 12 links restored, 3 links could not be matched", report.Summary())

	report.RowErrors = []RowError{{Line: 7, Reason: "missing name"}}
	assert.Equal(t,
		"42 items imported, 12 links restored, 3 links could not be matched, 1 row skipped",
		report.Summary())
}

func TestReconciliationReport_Summary_Singular(t *testing.T) {
	report := ReconciliationReport{Inserted: 1, LinksRestored: 1}
	assert.Equal(t, "1 item imported, 1 link restored", report.Summary())
}

func TestCacheEntry_Fresh(t *testing.T) {
	now := time.Now()
	entry := CacheEntry{ProjectID: uuid.New(), ComputedAt: now.Add(-4 * time.Minute)}

	assert.True(t, entry.Fresh(5*time.Minute, now))
	assert.False(t, entry.Fresh(3*time.Minute, now))
	assert.False(t, entry.Fresh(4*time.Minute, now))
}
