package models

import (
	"time"

	"github.com/google/uuid"
)

// Exercise is a catalog entry describing a movement. The catalog is shared
// across templates and sessions; sessions reference exercises by id.
type Exercise struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	TargetMuscleGroup string    `json:"target_muscle_group"`
	Equipment         *string   `json:"equipment,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
