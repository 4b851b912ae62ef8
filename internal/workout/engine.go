package workout

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/liftlog/liftlog/internal/models"
)

// Engine orchestrates the active-session lifecycle: materializing sessions
// from templates, exercise start/complete transitions, set logging, rest
// windows and session completion. It owns the state machine; the Store owns
// persistence.
//
// Session states: Created -> InProgress (first exercise start) -> Completed.
// Exercise states: Pending -> Active (started) -> Done (completed).
type Engine struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(store Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log, now: time.Now}
}

// StartSessionParams are the inputs for StartSession.
type StartSessionParams struct {
	Name        string      `json:"name"`
	Notes       *string     `json:"notes,omitempty"`
	TemplateIDs []uuid.UUID `json:"template_ids,omitempty"`
}

// StartSession creates a workout session, optionally materializing exercises
// and planned sets from one or more templates. Exercises from consecutive
// templates share a single contiguous order sequence. All runtime timestamps
// start nil; the session itself is not "started" until its first exercise is.
func (e *Engine) StartSession(ctx context.Context, userID int, p StartSessionParams) (*models.WorkoutSession, error) {
	if p.Name == "" {
		return nil, invalidField("name", "must not be empty")
	}

	now := e.now().UTC()
	session := &models.WorkoutSession{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      p.Name,
		Notes:     p.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	order := 0
	for _, templateID := range p.TemplateIDs {
		tpl, err := e.store.GetTemplate(ctx, userID, templateID)
		if err != nil {
			return nil, err
		}
		session.TemplateIDs = append(session.TemplateIDs, tpl.ID)

		for i := range tpl.Exercises {
			te := &tpl.Exercises[i]
			order++
			ex := models.SessionExercise{
				ID:                 uuid.New(),
				SessionID:          session.ID,
				ExerciseID:         te.ExerciseID,
				Order:              order,
				TemplateExerciseID: &te.ID,
				SupersetGroupID:    te.SupersetGroupID,
				SupersetOrder:      te.SupersetOrder,
				Notes:              te.Notes,
			}
			for j := range te.Sets {
				ts := &te.Sets[j]
				weight := 0.0
				if ts.TargetWeight != nil {
					weight = *ts.TargetWeight
				}
				ex.Sets = append(ex.Sets, models.Set{
					ID:                uuid.New(),
					SessionExerciseID: ex.ID,
					SetNumber:         ts.SetNumber,
					RepsCompleted:     0,
					Weight:            weight,
					IsWarmup:          ts.IsWarmup,
					Tempo:             ts.Tempo,
					TemplateSetID:     &ts.ID,
				})
			}
			session.Exercises = append(session.Exercises, ex)
		}
	}

	if err := e.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	e.log.Info("session started", "session_id", session.ID, "templates", len(p.TemplateIDs), "exercises", len(session.Exercises))
	return e.store.GetSession(ctx, userID, session.ID)
}

// GetSession returns the full session graph.
func (e *Engine) GetSession(ctx context.Context, userID int, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	return e.store.GetSession(ctx, userID, sessionID)
}

// ListSessions returns the user's sessions started within [start, end),
// newest first.
func (e *Engine) ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	return e.store.ListSessions(ctx, userID, start, end)
}

// UpdateSessionParams are the mutable session header fields.
type UpdateSessionParams struct {
	Name  *string `json:"name,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// UpdateSession renames or annotates an open session.
func (e *Engine) UpdateSession(ctx context.Context, userID int, sessionID uuid.UUID, p UpdateSessionParams) (*models.WorkoutSession, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("session %s is completed and read-only", sessionID)
	}
	if p.Name != nil {
		if *p.Name == "" {
			return nil, invalidField("name", "must not be empty")
		}
		session.Name = *p.Name
	}
	if p.Notes != nil {
		session.Notes = p.Notes
	}
	session.UpdatedAt = e.now().UTC()
	if err := e.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// AddExerciseParams are the inputs for AddExercise.
type AddExerciseParams struct {
	ExerciseID uuid.UUID `json:"exercise_id"`
	Order      int       `json:"order"`
	Notes      *string   `json:"notes,omitempty"`
}

// AddExercise appends an exercise to an open session. A zero order places it
// after the existing exercises.
func (e *Engine) AddExercise(ctx context.Context, userID int, sessionID uuid.UUID, p AddExerciseParams) (*models.SessionExercise, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("cannot add exercises to completed session %s", sessionID)
	}
	catalog, err := e.store.GetExercise(ctx, p.ExerciseID)
	if err != nil {
		return nil, err
	}

	order := p.Order
	if order <= 0 {
		order = len(session.Exercises) + 1
	}
	ex := &models.SessionExercise{
		ID:                uuid.New(),
		SessionID:         session.ID,
		ExerciseID:        catalog.ID,
		Order:             order,
		Notes:             p.Notes,
		ExerciseName:      catalog.Name,
		TargetMuscleGroup: catalog.TargetMuscleGroup,
	}
	if err := e.store.AddSessionExercise(ctx, ex); err != nil {
		return nil, err
	}
	return ex, nil
}

// StartExercise marks an exercise as started. Idempotent: a second call does
// not reset the timestamp. Starting the first exercise of a session also
// stamps the session's started_at (Created -> InProgress).
func (e *Engine) StartExercise(ctx context.Context, userID int, sessionID, exerciseID uuid.UUID) (*models.SessionExercise, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("cannot start exercises in completed session %s", sessionID)
	}
	ex := session.FindExercise(exerciseID)
	if ex == nil {
		return nil, NotFound("session exercise", exerciseID)
	}
	if ex.StartedAt != nil {
		return ex, nil
	}

	now := e.now().UTC()
	ex.StartedAt = &now
	if err := e.store.SaveSessionExercise(ctx, ex); err != nil {
		return nil, err
	}
	if session.StartedAt == nil {
		session.StartedAt = &now
		session.UpdatedAt = now
		if err := e.store.SaveSession(ctx, session); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

// CompleteExercise marks a started exercise as done.
func (e *Engine) CompleteExercise(ctx context.Context, userID int, sessionID, exerciseID uuid.UUID) (*models.SessionExercise, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("cannot complete exercises in completed session %s", sessionID)
	}
	ex := session.FindExercise(exerciseID)
	if ex == nil {
		return nil, NotFound("session exercise", exerciseID)
	}
	if ex.StartedAt == nil {
		return nil, invalidState("exercise %s was never started", exerciseID)
	}
	if ex.CompletedAt != nil {
		return nil, invalidState("exercise %s is already completed", exerciseID)
	}

	now := e.now().UTC()
	ex.CompletedAt = &now
	if err := e.store.SaveSessionExercise(ctx, ex); err != nil {
		return nil, err
	}
	return ex, nil
}

// SetParams are the inputs for LogSet. A positive SetNumber targets the
// planned (template-materialized) set with that number; zero appends a new
// set with the next unused number.
type SetParams struct {
	SetNumber     int     `json:"set_number,omitempty"`
	RepsCompleted int     `json:"reps_completed"`
	Weight        float64 `json:"weight"`
	IsWarmup      bool    `json:"is_warmup"`
	RPE           *int    `json:"rpe,omitempty"`
	Tempo         *string `json:"tempo,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

func validateSetInput(reps int, weight float64, rpe *int) error {
	if reps < 0 {
		return invalidField("reps_completed", "must be >= 0, got %d", reps)
	}
	if weight < 0 {
		return invalidField("weight", "must be >= 0, got %g", weight)
	}
	if rpe != nil && (*rpe < 1 || *rpe > 10) {
		return invalidField("rpe", "must be between 1 and 10, got %d", *rpe)
	}
	return nil
}

// LogSet records a performed set against an active exercise. Filling a
// planned set keeps its number; appending assigns MAX(set_number)+1, so
// numbers are never reused no matter what was corrected before. Logging
// while an earlier set's rest window is still open closes that window
// first: starting the next set means the rest is over.
func (e *Engine) LogSet(ctx context.Context, userID int, sessionID, exerciseID uuid.UUID, p SetParams) (*models.Set, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("cannot log sets in completed session %s", sessionID)
	}
	ex := session.FindExercise(exerciseID)
	if ex == nil {
		return nil, NotFound("session exercise", exerciseID)
	}
	if !ex.Active() {
		return nil, invalidState("exercise %s is not active", exerciseID)
	}
	if err := validateSetInput(p.RepsCompleted, p.Weight, p.RPE); err != nil {
		return nil, err
	}

	now := e.now().UTC()

	if stale := openRestWindow(ex); stale != nil {
		if err := e.closeRestWindow(ctx, stale, now); err != nil {
			return nil, err
		}
	}

	if p.SetNumber > 0 {
		set := ex.FindSetByNumber(p.SetNumber)
		if set == nil {
			return nil, invalidField("set_number", "no planned set %d for exercise %s; omit to append", p.SetNumber, exerciseID)
		}
		set.RepsCompleted = p.RepsCompleted
		set.Weight = p.Weight
		set.IsWarmup = p.IsWarmup
		set.RPE = p.RPE
		if p.Tempo != nil {
			set.Tempo = p.Tempo
		}
		set.Notes = p.Notes
		set.CompletedAt = &now
		if set.StartedAt == nil {
			set.StartedAt = &now
		}
		if err := e.store.SaveSet(ctx, set); err != nil {
			return nil, err
		}
		return set, nil
	}

	set := &models.Set{
		ID:                uuid.New(),
		SessionExerciseID: ex.ID,
		RepsCompleted:     p.RepsCompleted,
		Weight:            p.Weight,
		IsWarmup:          p.IsWarmup,
		RPE:               p.RPE,
		Tempo:             p.Tempo,
		Notes:             p.Notes,
		StartedAt:         &now,
		CompletedAt:       &now,
	}
	if err := e.store.AppendSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// UpdateSetParams are the correctable fields of a logged set. Set numbers and
// timestamps are never updatable.
type UpdateSetParams struct {
	RepsCompleted *int     `json:"reps_completed,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	IsWarmup      *bool    `json:"is_warmup,omitempty"`
	RPE           *int     `json:"rpe,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

// UpdateSet corrects a just-logged set in an open session.
func (e *Engine) UpdateSet(ctx context.Context, userID int, sessionID, exerciseID, setID uuid.UUID, p UpdateSetParams) (*models.Set, error) {
	_, _, set, err := e.findSet(ctx, userID, sessionID, exerciseID, setID)
	if err != nil {
		return nil, err
	}

	reps := set.RepsCompleted
	if p.RepsCompleted != nil {
		reps = *p.RepsCompleted
	}
	weight := set.Weight
	if p.Weight != nil {
		weight = *p.Weight
	}
	rpe := set.RPE
	if p.RPE != nil {
		rpe = p.RPE
	}
	if err := validateSetInput(reps, weight, rpe); err != nil {
		return nil, err
	}

	set.RepsCompleted = reps
	set.Weight = weight
	set.RPE = rpe
	if p.IsWarmup != nil {
		set.IsWarmup = *p.IsWarmup
	}
	if p.Notes != nil {
		set.Notes = p.Notes
	}
	if err := e.store.SaveSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// StartRest opens the rest window on a set. Re-invocation while the window is
// already open is a no-op, not an error, so the call is safely retryable.
func (e *Engine) StartRest(ctx context.Context, userID int, sessionID, exerciseID, setID uuid.UUID) (*models.Set, error) {
	_, _, set, err := e.findSet(ctx, userID, sessionID, exerciseID, setID)
	if err != nil {
		return nil, err
	}
	if set.RestStartTime != nil {
		return set, nil
	}

	now := e.now().UTC()
	set.RestStartTime = &now
	if err := e.store.SaveSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// EndRest closes the rest window and derives the actual rest time. Only the
// first end wins: a second call fails.
func (e *Engine) EndRest(ctx context.Context, userID int, sessionID, exerciseID, setID uuid.UUID) (*models.Set, error) {
	_, _, set, err := e.findSet(ctx, userID, sessionID, exerciseID, setID)
	if err != nil {
		return nil, err
	}
	if set.RestStartTime == nil {
		return nil, invalidState("rest window was never started for set %s", setID)
	}
	if set.RestEndTime != nil {
		return nil, invalidState("rest window already ended for set %s", setID)
	}
	if err := e.closeRestWindow(ctx, set, e.now().UTC()); err != nil {
		return nil, err
	}
	return set, nil
}

// CompleteSession finishes a session and persists its aggregates:
// active_duration is the sum of per-exercise active spans (a started but
// never-completed exercise counts up to the session completion time) and
// total_rest is the sum of recorded rest windows. Terminal; a second call
// fails and mutates nothing.
func (e *Engine) CompleteSession(ctx context.Context, userID int, sessionID uuid.UUID, completedAt *time.Time) (*models.WorkoutSession, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("session %s is already completed", sessionID)
	}

	now := e.now().UTC()
	done := now
	if completedAt != nil {
		done = completedAt.UTC()
	}

	activeSec := 0
	restSec := 0
	for i := range session.Exercises {
		ex := &session.Exercises[i]
		if ex.StartedAt != nil {
			end := done
			if ex.CompletedAt != nil {
				end = *ex.CompletedAt
			}
			if span := end.Sub(*ex.StartedAt); span > 0 {
				activeSec += int(span.Seconds())
			}
		}
		for j := range ex.Sets {
			if ex.Sets[j].ActualRestSec != nil {
				restSec += *ex.Sets[j].ActualRestSec
			}
		}
	}

	session.CompletedAt = &done
	session.ActiveDurationSec = &activeSec
	session.TotalRestSec = &restSec
	session.UpdatedAt = now
	if err := e.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	e.log.Info("session completed", "session_id", session.ID, "active_sec", activeSec, "rest_sec", restSec)
	return session, nil
}

// SupersetParams group existing session exercises into a superset.
type SupersetParams struct {
	ExerciseIDs []uuid.UUID `json:"exercise_ids"`
	Orders      []int       `json:"orders"`
}

// CreateSuperset assigns a fresh superset group id and per-exercise order to
// the named exercises of an open session.
func (e *Engine) CreateSuperset(ctx context.Context, userID int, sessionID uuid.UUID, p SupersetParams) ([]models.SessionExercise, error) {
	if len(p.ExerciseIDs) != len(p.Orders) {
		return nil, invalidField("orders", "must match exercise_ids length (%d vs %d)", len(p.Orders), len(p.ExerciseIDs))
	}
	if len(p.ExerciseIDs) < 2 {
		return nil, invalidField("exercise_ids", "a superset needs at least two exercises")
	}
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, invalidState("cannot create supersets in completed session %s", sessionID)
	}

	groupID := uuid.NewString()
	updated := make([]models.SessionExercise, 0, len(p.ExerciseIDs))
	for i, id := range p.ExerciseIDs {
		ex := session.FindExercise(id)
		if ex == nil {
			return nil, NotFound("session exercise", id)
		}
		order := p.Orders[i]
		ex.SupersetGroupID = &groupID
		ex.SupersetOrder = &order
		if err := e.store.SaveSessionExercise(ctx, ex); err != nil {
			return nil, err
		}
		updated = append(updated, *ex)
	}
	return updated, nil
}

// CreateTemplate validates and persists a workout blueprint: orders must be
// unique and set numbers contiguous from 1 within each exercise.
func (e *Engine) CreateTemplate(ctx context.Context, userID int, t *models.Template) (*models.Template, error) {
	if t.Name == "" {
		return nil, invalidField("name", "must not be empty")
	}
	seen := make(map[int]bool, len(t.Exercises))
	for i := range t.Exercises {
		te := &t.Exercises[i]
		if seen[te.Order] {
			return nil, invalidField("order", "duplicate order %d in template", te.Order)
		}
		seen[te.Order] = true
		for j := range te.Sets {
			if te.Sets[j].SetNumber != j+1 {
				return nil, invalidField("set_number", "sets must be numbered 1..N without gaps")
			}
		}
	}

	now := e.now().UTC()
	t.ID = uuid.New()
	t.UserID = userID
	t.CreatedAt = now
	t.UpdatedAt = now
	for i := range t.Exercises {
		te := &t.Exercises[i]
		te.ID = uuid.New()
		te.TemplateID = t.ID
		for j := range te.Sets {
			te.Sets[j].ID = uuid.New()
			te.Sets[j].TemplateExerciseID = te.ID
		}
	}
	if err := e.store.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// findSet loads the session graph and resolves the exercise/set pair,
// rejecting mutations on completed sessions.
func (e *Engine) findSet(ctx context.Context, userID int, sessionID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, *models.SessionExercise, *models.Set, error) {
	session, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if session.Completed() {
		return nil, nil, nil, invalidState("session %s is completed and read-only", sessionID)
	}
	ex := session.FindExercise(exerciseID)
	if ex == nil {
		return nil, nil, nil, NotFound("session exercise", exerciseID)
	}
	set := ex.FindSet(setID)
	if set == nil {
		return nil, nil, nil, NotFound("set", setID)
	}
	return session, ex, set, nil
}

// openRestWindow returns the exercise's set with a started but unfinished
// rest window, if any.
func openRestWindow(ex *models.SessionExercise) *models.Set {
	for i := range ex.Sets {
		if ex.Sets[i].RestOpen() {
			return &ex.Sets[i]
		}
	}
	return nil
}

func (e *Engine) closeRestWindow(ctx context.Context, set *models.Set, at time.Time) error {
	end := at
	rest := int(end.Sub(*set.RestStartTime).Seconds())
	if rest < 0 {
		rest = 0
	}
	set.RestEndTime = &end
	set.ActualRestSec = &rest
	return e.store.SaveSet(ctx, set)
}
