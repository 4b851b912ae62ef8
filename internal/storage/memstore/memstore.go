// Package memstore is an in-memory implementation of the engine's Store and
// the aggregator's Reader. It backs the unit and handler test suites, which
// exercise the full lifecycle without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liftlog/liftlog/internal/models"
	"github.com/liftlog/liftlog/internal/stats"
	"github.com/liftlog/liftlog/internal/workout"
)

// Store keeps every entity type in its own keyed table and resolves
// relationships by id lookup, mirroring the relational layout.
type Store struct {
	mu sync.RWMutex

	users      map[string]int
	nextUserID int

	exercises        map[uuid.UUID]models.Exercise
	templates        map[uuid.UUID]models.Template
	sessions         map[uuid.UUID]models.WorkoutSession // header only, Exercises nil
	sessionExercises map[uuid.UUID]models.SessionExercise // Sets nil
	sets             map[uuid.UUID]models.Set
}

var (
	_ workout.Store = (*Store)(nil)
	_ stats.Reader  = (*Store)(nil)
)

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:            make(map[string]int),
		nextUserID:       1,
		exercises:        make(map[uuid.UUID]models.Exercise),
		templates:        make(map[uuid.UUID]models.Template),
		sessions:         make(map[uuid.UUID]models.WorkoutSession),
		sessionExercises: make(map[uuid.UUID]models.SessionExercise),
		sets:             make(map[uuid.UUID]models.Set),
	}
}

// GetOrCreateUser finds or creates a user by login name.
func (s *Store) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.users[login]; ok {
		return id, nil
	}
	id := s.nextUserID
	s.nextUserID++
	s.users[login] = id
	return id, nil
}

// CreateExercise adds a catalog entry.
func (s *Store) CreateExercise(ctx context.Context, e *models.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exercises[e.ID] = *e
	return nil
}

// GetExercise returns a catalog entry by id.
func (s *Store) GetExercise(ctx context.Context, id uuid.UUID) (*models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exercises[id]
	if !ok {
		return nil, workout.NotFound("exercise", id)
	}
	return &e, nil
}

// ListExercises returns the catalog sorted by name.
func (s *Store) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Exercise, 0, len(s.exercises))
	for _, e := range s.exercises {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateTemplate stores a template with its exercises and sets.
func (s *Store) CreateTemplate(ctx context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = copyTemplate(t)
	return nil
}

// GetTemplate returns a user's template by id.
func (s *Store) GetTemplate(ctx context.Context, userID int, id uuid.UUID) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok || t.UserID != userID {
		return nil, workout.NotFound("template", id)
	}
	cp := copyTemplate(&t)
	return &cp, nil
}

// ListTemplates returns a user's templates, newest first.
func (s *Store) ListTemplates(ctx context.Context, userID int) ([]models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Template{}
	for _, t := range s.templates {
		if t.UserID == userID {
			out = append(out, copyTemplate(&t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateSession stores the session header, its exercises and their sets.
func (s *Store) CreateSession(ctx context.Context, session *models.WorkoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	header := *session
	header.Exercises = nil
	s.sessions[session.ID] = header
	for i := range session.Exercises {
		ex := session.Exercises[i]
		for j := range ex.Sets {
			s.sets[ex.Sets[j].ID] = ex.Sets[j]
		}
		ex.Sets = nil
		s.sessionExercises[ex.ID] = ex
	}
	return nil
}

// GetSession assembles the full session graph with exercise catalog fields
// resolved, exercises ordered and sets numbered.
func (s *Store) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	header, ok := s.sessions[id]
	if !ok || header.UserID != userID {
		return nil, workout.NotFound("session", id)
	}

	session := header
	for _, ex := range s.sessionExercises {
		if ex.SessionID != id {
			continue
		}
		if cat, ok := s.exercises[ex.ExerciseID]; ok {
			ex.ExerciseName = cat.Name
			ex.TargetMuscleGroup = cat.TargetMuscleGroup
		}
		for _, set := range s.sets {
			if set.SessionExerciseID == ex.ID {
				ex.Sets = append(ex.Sets, set)
			}
		}
		sort.Slice(ex.Sets, func(i, j int) bool { return ex.Sets[i].SetNumber < ex.Sets[j].SetNumber })
		session.Exercises = append(session.Exercises, ex)
	}
	sort.Slice(session.Exercises, func(i, j int) bool {
		return session.Exercises[i].Order < session.Exercises[j].Order
	})
	return &session, nil
}

// ListSessions returns session headers in [start, end), newest first. An
// unstarted session is filtered by its creation time.
func (s *Store) ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.WorkoutSession{}
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		at := session.CreatedAt
		if session.StartedAt != nil {
			at = *session.StartedAt
		}
		if at.Before(start) || !at.Before(end) {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SaveSession updates the session header.
func (s *Store) SaveSession(ctx context.Context, session *models.WorkoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return workout.NotFound("session", session.ID)
	}
	header := *session
	header.Exercises = nil
	s.sessions[session.ID] = header
	return nil
}

// AddSessionExercise appends an exercise row.
func (s *Store) AddSessionExercise(ctx context.Context, ex *models.SessionExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *ex
	row.Sets = nil
	s.sessionExercises[ex.ID] = row
	return nil
}

// SaveSessionExercise updates an exercise row.
func (s *Store) SaveSessionExercise(ctx context.Context, ex *models.SessionExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessionExercises[ex.ID]; !ok {
		return workout.NotFound("session exercise", ex.ID)
	}
	row := *ex
	row.Sets = nil
	s.sessionExercises[ex.ID] = row
	return nil
}

// AppendSet assigns the next unused set number and inserts the row under one
// lock, the in-memory equivalent of the transactional insert.
func (s *Store) AppendSet(ctx context.Context, set *models.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, existing := range s.sets {
		if existing.SessionExerciseID == set.SessionExerciseID && existing.SetNumber > max {
			max = existing.SetNumber
		}
	}
	set.SetNumber = max + 1
	s.sets[set.ID] = *set
	return nil
}

// SaveSet updates a set row.
func (s *Store) SaveSet(ctx context.Context, set *models.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[set.ID]; !ok {
		return workout.NotFound("set", set.ID)
	}
	s.sets[set.ID] = *set
	return nil
}

// CompletedSessions implements stats.Reader over completed_at.
func (s *Store) CompletedSessions(ctx context.Context, userID int, start, end time.Time) ([]stats.SessionFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []stats.SessionFact{}
	for _, session := range s.sessions {
		if fact, ok := s.sessionFact(&session, userID, start, end); ok {
			out = append(out, fact)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

// CompletedSets implements stats.Reader: logged sets of completed sessions
// whose completed_at falls in [start, end).
func (s *Store) CompletedSets(ctx context.Context, userID int, start, end time.Time) ([]stats.SetFact, error) {
	return s.setFacts(userID, &start, &end), nil
}

// AllCompletedSets implements stats.Reader over the whole history.
func (s *Store) AllCompletedSets(ctx context.Context, userID int) ([]stats.SetFact, error) {
	return s.setFacts(userID, nil, nil), nil
}

// ExerciseInfo implements stats.Reader against the catalog table.
func (s *Store) ExerciseInfo(ctx context.Context, exerciseID uuid.UUID) (stats.ExerciseFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exercises[exerciseID]
	if !ok {
		return stats.ExerciseFact{}, workout.NotFound("exercise", exerciseID)
	}
	return stats.ExerciseFact{ID: e.ID, Name: e.Name, MuscleGroup: e.TargetMuscleGroup}, nil
}

func (s *Store) sessionFact(session *models.WorkoutSession, userID int, start, end time.Time) (stats.SessionFact, bool) {
	if session.UserID != userID || session.CompletedAt == nil {
		return stats.SessionFact{}, false
	}
	at := *session.CompletedAt
	if at.Before(start) || !at.Before(end) {
		return stats.SessionFact{}, false
	}
	fact := stats.SessionFact{ID: session.ID, CompletedAt: at}
	if session.ActiveDurationSec != nil {
		fact.ActiveDurationSec = *session.ActiveDurationSec
	}
	if session.TotalRestSec != nil {
		fact.TotalRestSec = *session.TotalRestSec
	}
	return fact, true
}

func (s *Store) setFacts(userID int, start, end *time.Time) []stats.SetFact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []stats.SetFact{}
	for _, set := range s.sets {
		if set.CompletedAt == nil {
			continue
		}
		ex, ok := s.sessionExercises[set.SessionExerciseID]
		if !ok {
			continue
		}
		session, ok := s.sessions[ex.SessionID]
		if !ok || session.UserID != userID || session.CompletedAt == nil {
			continue
		}
		at := *session.CompletedAt
		if start != nil && at.Before(*start) {
			continue
		}
		if end != nil && !at.Before(*end) {
			continue
		}
		fact := stats.SetFact{
			SessionID:          ex.SessionID,
			ExerciseID:         ex.ExerciseID,
			Weight:             set.Weight,
			Reps:               set.RepsCompleted,
			IsWarmup:           set.IsWarmup,
			ActualRestSec:      set.ActualRestSec,
			SessionCompletedAt: at,
		}
		if cat, ok := s.exercises[ex.ExerciseID]; ok {
			fact.ExerciseName = cat.Name
			fact.MuscleGroup = cat.TargetMuscleGroup
		}
		out = append(out, fact)
	}
	return out
}

func copyTemplate(t *models.Template) models.Template {
	cp := *t
	cp.Exercises = make([]models.TemplateExercise, len(t.Exercises))
	for i, te := range t.Exercises {
		cp.Exercises[i] = te
		cp.Exercises[i].Sets = append([]models.TemplateSet(nil), te.Sets...)
	}
	return cp
}
