package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/liftlog/liftlog/internal/models"
	"github.com/liftlog/liftlog/internal/workout"
)

// CreateSession inserts the session header, its template links, exercises and
// materialized sets in one transaction.
func (db *DB) CreateSession(ctx context.Context, s *models.WorkoutSession) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, name, notes, started_at, completed_at,
		 active_duration_sec, total_rest_sec, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.Name, s.Notes, s.StartedAt, s.CompletedAt,
		s.ActiveDurationSec, s.TotalRestSec, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	for i, templateID := range s.TemplateIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO session_templates (session_id, template_id, position) VALUES ($1, $2, $3)`,
			s.ID, templateID, i+1)
		if err != nil {
			return fmt.Errorf("inserting session template link: %w", err)
		}
	}

	for i := range s.Exercises {
		ex := &s.Exercises[i]
		if err := insertSessionExercise(ctx, tx, ex); err != nil {
			return err
		}
		for j := range ex.Sets {
			if err := insertSet(ctx, tx, &ex.Sets[j]); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// GetSession retrieves the full session graph with exercise catalog fields
// resolved, exercises ordered and sets numbered.
func (db *DB) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error) {
	var s models.WorkoutSession
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, notes, started_at, completed_at,
		 active_duration_sec, total_rest_sec, created_at, updated_at
		 FROM workout_sessions WHERE id = $1 AND user_id = $2`,
		id, userID).
		Scan(&s.ID, &s.UserID, &s.Name, &s.Notes, &s.StartedAt, &s.CompletedAt,
			&s.ActiveDurationSec, &s.TotalRestSec, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workout.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	tplRows, err := db.Pool.Query(ctx,
		`SELECT template_id FROM session_templates WHERE session_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session templates: %w", err)
	}
	defer tplRows.Close()
	for tplRows.Next() {
		var templateID uuid.UUID
		if err := tplRows.Scan(&templateID); err != nil {
			return nil, fmt.Errorf("scanning session template: %w", err)
		}
		s.TemplateIDs = append(s.TemplateIDs, templateID)
	}
	if err := tplRows.Err(); err != nil {
		return nil, err
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT se.id, se.session_id, se.exercise_id, se.exercise_order, se.template_exercise_id,
		 se.superset_group_id, se.superset_order, se.notes, se.started_at, se.completed_at,
		 e.name, e.target_muscle_group
		 FROM session_exercises se
		 JOIN exercises e ON e.id = se.exercise_id
		 WHERE se.session_id = $1
		 ORDER BY se.exercise_order`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying session exercises: %w", err)
	}
	defer exRows.Close()

	s.Exercises = []models.SessionExercise{}
	for exRows.Next() {
		var ex models.SessionExercise
		if err := exRows.Scan(&ex.ID, &ex.SessionID, &ex.ExerciseID, &ex.Order, &ex.TemplateExerciseID,
			&ex.SupersetGroupID, &ex.SupersetOrder, &ex.Notes, &ex.StartedAt, &ex.CompletedAt,
			&ex.ExerciseName, &ex.TargetMuscleGroup); err != nil {
			return nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		s.Exercises = append(s.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	for i := range s.Exercises {
		ex := &s.Exercises[i]
		setRows, err := db.Pool.Query(ctx,
			`SELECT id, session_exercise_id, set_number, reps_completed, weight, is_warmup,
			 rpe, tempo, notes, started_at, completed_at, rest_start_time, rest_end_time,
			 actual_rest_sec, template_set_id
			 FROM workout_sets WHERE session_exercise_id = $1 ORDER BY set_number`,
			ex.ID)
		if err != nil {
			return nil, fmt.Errorf("querying sets: %w", err)
		}
		ex.Sets = []models.Set{}
		for setRows.Next() {
			var set models.Set
			if err := setRows.Scan(&set.ID, &set.SessionExerciseID, &set.SetNumber, &set.RepsCompleted,
				&set.Weight, &set.IsWarmup, &set.RPE, &set.Tempo, &set.Notes,
				&set.StartedAt, &set.CompletedAt, &set.RestStartTime, &set.RestEndTime,
				&set.ActualRestSec, &set.TemplateSetID); err != nil {
				setRows.Close()
				return nil, fmt.Errorf("scanning set: %w", err)
			}
			ex.Sets = append(ex.Sets, set)
		}
		if err := setRows.Err(); err != nil {
			setRows.Close()
			return nil, err
		}
		setRows.Close()
	}

	return &s, nil
}

// ListSessions retrieves session headers in a time range, newest first. An
// unstarted session is filtered by its creation time.
func (db *DB) ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, notes, started_at, completed_at,
		 active_duration_sec, total_rest_sec, created_at, updated_at
		 FROM workout_sessions
		 WHERE user_id = $1
		   AND COALESCE(started_at, created_at) >= $2
		   AND COALESCE(started_at, created_at) < $3
		 ORDER BY created_at DESC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	result := []models.WorkoutSession{}
	for rows.Next() {
		var s models.WorkoutSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Notes, &s.StartedAt, &s.CompletedAt,
			&s.ActiveDurationSec, &s.TotalRestSec, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// SaveSession updates the session header.
func (db *DB) SaveSession(ctx context.Context, s *models.WorkoutSession) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sessions
		 SET name = $2, notes = $3, started_at = $4, completed_at = $5,
		     active_duration_sec = $6, total_rest_sec = $7, updated_at = $8
		 WHERE id = $1`,
		s.ID, s.Name, s.Notes, s.StartedAt, s.CompletedAt,
		s.ActiveDurationSec, s.TotalRestSec, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workout.NotFound("session", s.ID)
	}
	return nil
}

// AddSessionExercise inserts one exercise row into an existing session.
func (db *DB) AddSessionExercise(ctx context.Context, ex *models.SessionExercise) error {
	return insertSessionExercise(ctx, db.Pool, ex)
}

// SaveSessionExercise updates an exercise row's mutable fields.
func (db *DB) SaveSessionExercise(ctx context.Context, ex *models.SessionExercise) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE session_exercises
		 SET exercise_order = $2, superset_group_id = $3, superset_order = $4,
		     notes = $5, started_at = $6, completed_at = $7
		 WHERE id = $1`,
		ex.ID, ex.Order, ex.SupersetGroupID, ex.SupersetOrder,
		ex.Notes, ex.StartedAt, ex.CompletedAt)
	if err != nil {
		return fmt.Errorf("updating session exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workout.NotFound("session exercise", ex.ID)
	}
	return nil
}

// AppendSet assigns the next unused set number and inserts the row inside one
// transaction. The owning exercise row is locked so two concurrent appends
// cannot compute the same number.
func (db *DB) AppendSet(ctx context.Context, set *models.Set) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT TRUE FROM session_exercises WHERE id = $1 FOR UPDATE`,
		set.SessionExerciseID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return workout.NotFound("session exercise", set.SessionExerciseID)
	}
	if err != nil {
		return fmt.Errorf("locking session exercise: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(set_number), 0) + 1 FROM workout_sets WHERE session_exercise_id = $1`,
		set.SessionExerciseID).Scan(&set.SetNumber)
	if err != nil {
		return fmt.Errorf("computing set number: %w", err)
	}

	if err := insertSet(ctx, tx, set); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveSet updates a set row.
func (db *DB) SaveSet(ctx context.Context, set *models.Set) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sets
		 SET reps_completed = $2, weight = $3, is_warmup = $4, rpe = $5, tempo = $6,
		     notes = $7, started_at = $8, completed_at = $9, rest_start_time = $10,
		     rest_end_time = $11, actual_rest_sec = $12
		 WHERE id = $1`,
		set.ID, set.RepsCompleted, set.Weight, set.IsWarmup, set.RPE, set.Tempo,
		set.Notes, set.StartedAt, set.CompletedAt, set.RestStartTime,
		set.RestEndTime, set.ActualRestSec)
	if err != nil {
		return fmt.Errorf("updating set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workout.NotFound("set", set.ID)
	}
	return nil
}

// querier covers both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSessionExercise(ctx context.Context, q querier, ex *models.SessionExercise) error {
	_, err := q.Exec(ctx,
		`INSERT INTO session_exercises (id, session_id, exercise_id, exercise_order,
		 template_exercise_id, superset_group_id, superset_order, notes, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ex.ID, ex.SessionID, ex.ExerciseID, ex.Order,
		ex.TemplateExerciseID, ex.SupersetGroupID, ex.SupersetOrder, ex.Notes,
		ex.StartedAt, ex.CompletedAt)
	if err != nil {
		return fmt.Errorf("inserting session exercise: %w", err)
	}
	return nil
}

func insertSet(ctx context.Context, q querier, set *models.Set) error {
	_, err := q.Exec(ctx,
		`INSERT INTO workout_sets (id, session_exercise_id, set_number, reps_completed, weight,
		 is_warmup, rpe, tempo, notes, started_at, completed_at, rest_start_time, rest_end_time,
		 actual_rest_sec, template_set_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		set.ID, set.SessionExerciseID, set.SetNumber, set.RepsCompleted, set.Weight,
		set.IsWarmup, set.RPE, set.Tempo, set.Notes, set.StartedAt, set.CompletedAt,
		set.RestStartTime, set.RestEndTime, set.ActualRestSec, set.TemplateSetID)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}
