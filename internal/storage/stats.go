package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/liftlog/liftlog/internal/stats"
	"github.com/liftlog/liftlog/internal/workout"
)

// CompletedSessions retrieves the facts of sessions completed in [start, end).
func (db *DB) CompletedSessions(ctx context.Context, userID int, start, end time.Time) ([]stats.SessionFact, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, completed_at, COALESCE(active_duration_sec, 0), COALESCE(total_rest_sec, 0)
		 FROM workout_sessions
		 WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3
		 ORDER BY completed_at`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying completed sessions: %w", err)
	}
	defer rows.Close()

	result := []stats.SessionFact{}
	for rows.Next() {
		var f stats.SessionFact
		if err := rows.Scan(&f.ID, &f.CompletedAt, &f.ActiveDurationSec, &f.TotalRestSec); err != nil {
			return nil, fmt.Errorf("scanning session fact: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// CompletedSets retrieves the facts of logged sets belonging to sessions
// completed in [start, end). Sets materialized from a template but never
// logged carry no completed_at and are excluded.
func (db *DB) CompletedSets(ctx context.Context, userID int, start, end time.Time) ([]stats.SetFact, error) {
	return db.querySetFacts(ctx,
		`SELECT s.id, se.exercise_id, e.name, e.target_muscle_group,
		 ws.weight, ws.reps_completed, ws.is_warmup, ws.actual_rest_sec, s.completed_at
		 FROM workout_sets ws
		 JOIN session_exercises se ON se.id = ws.session_exercise_id
		 JOIN exercises e ON e.id = se.exercise_id
		 JOIN workout_sessions s ON s.id = se.session_id
		 WHERE s.user_id = $1 AND s.completed_at >= $2 AND s.completed_at < $3
		   AND ws.completed_at IS NOT NULL
		 ORDER BY s.completed_at`,
		userID, start, end)
}

// AllCompletedSets retrieves set facts over the user's whole history.
func (db *DB) AllCompletedSets(ctx context.Context, userID int) ([]stats.SetFact, error) {
	return db.querySetFacts(ctx,
		`SELECT s.id, se.exercise_id, e.name, e.target_muscle_group,
		 ws.weight, ws.reps_completed, ws.is_warmup, ws.actual_rest_sec, s.completed_at
		 FROM workout_sets ws
		 JOIN session_exercises se ON se.id = ws.session_exercise_id
		 JOIN exercises e ON e.id = se.exercise_id
		 JOIN workout_sessions s ON s.id = se.session_id
		 WHERE s.user_id = $1 AND s.completed_at IS NOT NULL
		   AND ws.completed_at IS NOT NULL
		 ORDER BY s.completed_at`,
		userID)
}

// ExerciseInfo resolves the catalog identity behind per-exercise stats.
func (db *DB) ExerciseInfo(ctx context.Context, exerciseID uuid.UUID) (stats.ExerciseFact, error) {
	var f stats.ExerciseFact
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, target_muscle_group FROM exercises WHERE id = $1`,
		exerciseID).Scan(&f.ID, &f.Name, &f.MuscleGroup)
	if errors.Is(err, pgx.ErrNoRows) {
		return stats.ExerciseFact{}, workout.NotFound("exercise", exerciseID)
	}
	if err != nil {
		return stats.ExerciseFact{}, fmt.Errorf("querying exercise info: %w", err)
	}
	return f, nil
}

func (db *DB) querySetFacts(ctx context.Context, query string, args ...any) ([]stats.SetFact, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying set facts: %w", err)
	}
	defer rows.Close()

	result := []stats.SetFact{}
	for rows.Next() {
		var f stats.SetFact
		if err := rows.Scan(&f.SessionID, &f.ExerciseID, &f.ExerciseName, &f.MuscleGroup,
			&f.Weight, &f.Reps, &f.IsWarmup, &f.ActualRestSec, &f.SessionCompletedAt); err != nil {
			return nil, fmt.Errorf("scanning set fact: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
