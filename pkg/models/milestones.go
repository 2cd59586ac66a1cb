package models

import (
	"time"

	"github.com/google/uuid"
)

// Rollup component weights. Stage completion carries the most weight because
// it reflects work actually done in the field, not paperwork.
const (
	RollupWeightOrders    = 0.25
	RollupWeightReceiving = 0.35
	RollupWeightStages    = 0.40
)

// PhaseRollup is one weighted phase percentage with its three components
// disclosed so the UI can explain the number.
type PhaseRollup struct {
	Orders    int `json:"orders"`
	Receiving int `json:"receiving"`
	Stages    int `json:"stages"`
	Percent   int `json:"percent"`
}

// MilestonePercentageBundle is the full derived progress picture for one
// project. Every percentage is in [0, 100]; a phase with zero eligible items
// reports 0, never 100 and never a division artifact. The bundle is cached,
// never durably persisted.
type MilestonePercentageBundle struct {
	Planning         int `json:"planning"`
	PrewireOrders    int `json:"prewire_orders"`
	PrewireReceiving int `json:"prewire_receiving"`
	PrewireStages    int `json:"prewire_stages"`
	TrimOrders       int `json:"trim_orders"`
	TrimReceiving    int `json:"trim_receiving"`
	TrimStages       int `json:"trim_stages"`
	Commissioning    int `json:"commissioning"`

	Prewire PhaseRollup `json:"prewire"`
	Trim    PhaseRollup `json:"trim"`
}

// CacheEntry is one cached milestone bundle. ComputedAt is always the
// wall-clock time of the last successful computation; freshness is judged
// against it by the progress cache.
type CacheEntry struct {
	ProjectID  uuid.UUID                 `json:"project_id"`
	Bundle     MilestonePercentageBundle `json:"bundle"`
	ComputedAt time.Time                 `json:"computed_at"`
}

// Fresh reports whether the entry is within the given freshness window.
func (e *CacheEntry) Fresh(window time.Duration, now time.Time) bool {
	return now.Sub(e.ComputedAt) < window
}
