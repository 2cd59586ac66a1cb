package models

import (
	"time"

	"github.com/google/uuid"
)

// WireDrop is an installation record representing one cable run/location.
// Its completion flags feed the stage percentages of the milestone rollup.
// Wire drops are created and updated by the installation-detail UI, which is
// outside this engine; the engine reads them and restores their equipment
// links across reimports.
type WireDrop struct {
	ID                 uuid.UUID  `json:"id"`
	ProjectID          uuid.UUID  `json:"project_id"`
	Name               string     `json:"name"`
	RoomID             *uuid.UUID `json:"room_id,omitempty"`
	PlanComplete       bool       `json:"plan_complete"`
	PrewireComplete    bool       `json:"prewire_complete"`
	TrimComplete       bool       `json:"trim_complete"`
	CommissionComplete bool       `json:"commission_complete"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
