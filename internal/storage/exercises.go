package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/liftlog/liftlog/internal/models"
	"github.com/liftlog/liftlog/internal/workout"
)

// CreateExercise inserts an exercise catalog entry.
func (db *DB) CreateExercise(ctx context.Context, e *models.Exercise) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (id, name, target_muscle_group, equipment, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Name, e.TargetMuscleGroup, e.Equipment, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// GetExercise retrieves a catalog entry by ID.
func (db *DB) GetExercise(ctx context.Context, id uuid.UUID) (*models.Exercise, error) {
	var e models.Exercise
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, target_muscle_group, equipment, created_at
		 FROM exercises WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.TargetMuscleGroup, &e.Equipment, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workout.NotFound("exercise", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	return &e, nil
}

// ListExercises retrieves the whole catalog ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, target_muscle_group, equipment, created_at
		 FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.TargetMuscleGroup, &e.Equipment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
