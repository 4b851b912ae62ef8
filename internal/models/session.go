package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutSession is one dated execution of a workout. StartedAt stays nil
// until the first exercise is started; CompletedAt nil until the session is
// finished. A completed session is read-only.
type WorkoutSession struct {
	ID                uuid.UUID         `json:"id"`
	UserID            int               `json:"user_id"`
	Name              string            `json:"name"`
	Notes             *string           `json:"notes,omitempty"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	ActiveDurationSec *int              `json:"active_duration_sec,omitempty"`
	TotalRestSec      *int              `json:"total_rest_sec,omitempty"`
	TemplateIDs       []uuid.UUID       `json:"template_ids,omitempty"`
	Exercises         []SessionExercise `json:"exercises"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Completed reports whether the session has been finished.
func (s *WorkoutSession) Completed() bool {
	return s.CompletedAt != nil
}

// FindExercise returns the session exercise with the given id, or nil.
func (s *WorkoutSession) FindExercise(id uuid.UUID) *SessionExercise {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			return &s.Exercises[i]
		}
	}
	return nil
}

// SessionExercise is one exercise performed (or planned) within a session,
// optionally materialized from a template exercise.
type SessionExercise struct {
	ID                 uuid.UUID  `json:"id"`
	SessionID          uuid.UUID  `json:"session_id"`
	ExerciseID         uuid.UUID  `json:"exercise_id"`
	Order              int        `json:"order"`
	TemplateExerciseID *uuid.UUID `json:"template_exercise_id,omitempty"`
	SupersetGroupID    *string    `json:"superset_group_id,omitempty"`
	SupersetOrder      *int       `json:"superset_order,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ExerciseName       string     `json:"exercise_name,omitempty"`
	TargetMuscleGroup  string     `json:"target_muscle_group,omitempty"`
	Sets               []Set      `json:"sets"`
}

// Active reports whether the exercise has been started and not yet completed.
// Sets may only be logged against an active exercise.
func (e *SessionExercise) Active() bool {
	return e.StartedAt != nil && e.CompletedAt == nil
}

// FindSet returns the set with the given id, or nil.
func (e *SessionExercise) FindSet(id uuid.UUID) *Set {
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			return &e.Sets[i]
		}
	}
	return nil
}

// FindSetByNumber returns the set with the given set number, or nil.
func (e *SessionExercise) FindSetByNumber(n int) *Set {
	for i := range e.Sets {
		if e.Sets[i].SetNumber == n {
			return &e.Sets[i]
		}
	}
	return nil
}

// MaxSetNumber returns the highest set number logged for the exercise, or 0.
func (e *SessionExercise) MaxSetNumber() int {
	max := 0
	for i := range e.Sets {
		if e.Sets[i].SetNumber > max {
			max = e.Sets[i].SetNumber
		}
	}
	return max
}

// Set is one unit of an exercise: a rep count at a weight, plus the rest
// window that followed it. A set materialized from a template keeps its
// planned number and weight with RepsCompleted zero and timestamps nil until
// it is logged.
type Set struct {
	ID                uuid.UUID  `json:"id"`
	SessionExerciseID uuid.UUID  `json:"session_exercise_id"`
	SetNumber         int        `json:"set_number"`
	RepsCompleted     int        `json:"reps_completed"`
	Weight            float64    `json:"weight"`
	IsWarmup          bool       `json:"is_warmup"`
	RPE               *int       `json:"rpe,omitempty"`
	Tempo             *string    `json:"tempo,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	RestStartTime     *time.Time `json:"rest_start_time,omitempty"`
	RestEndTime       *time.Time `json:"rest_end_time,omitempty"`
	ActualRestSec     *int       `json:"actual_rest_sec,omitempty"`
	TemplateSetID     *uuid.UUID `json:"template_set_id,omitempty"`
}

// RestOpen reports whether a rest window was started but never ended.
func (s *Set) RestOpen() bool {
	return s.RestStartTime != nil && s.RestEndTime == nil
}
