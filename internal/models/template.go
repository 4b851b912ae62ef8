package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is a reusable workout blueprint: an ordered list of exercises,
// each with planned sets. Templates carry no runtime state; starting a
// session materializes copies of their exercises and sets.
type Template struct {
	ID          uuid.UUID          `json:"id"`
	UserID      int                `json:"user_id"`
	Name        string             `json:"name"`
	Description *string            `json:"description,omitempty"`
	Exercises   []TemplateExercise `json:"exercises"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TemplateExercise is one exercise slot in a template. Order values are
// unique within a template.
type TemplateExercise struct {
	ID              uuid.UUID     `json:"id"`
	TemplateID      uuid.UUID     `json:"template_id"`
	ExerciseID      uuid.UUID     `json:"exercise_id"`
	Order           int           `json:"order"`
	SupersetGroupID *string       `json:"superset_group_id,omitempty"`
	SupersetOrder   *int          `json:"superset_order,omitempty"`
	Notes           *string       `json:"notes,omitempty"`
	Sets            []TemplateSet `json:"sets"`
}

// TemplateSet is a planned set. Set numbers run 1..N within an exercise;
// warm-up sets are flagged, not numbered separately.
type TemplateSet struct {
	ID                 uuid.UUID `json:"id"`
	TemplateExerciseID uuid.UUID `json:"template_exercise_id"`
	SetNumber          int       `json:"set_number"`
	TargetReps         int       `json:"target_reps"`
	TargetWeight       *float64  `json:"target_weight,omitempty"`
	IsWarmup           bool      `json:"is_warmup"`
	TargetRestSeconds  *int      `json:"target_rest_seconds,omitempty"`
	Tempo              *string   `json:"tempo,omitempty"`
}
