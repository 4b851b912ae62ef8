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

// CreateTemplate inserts a template with its exercises and planned sets in
// one transaction.
func (db *DB) CreateTemplate(ctx context.Context, t *models.Template) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_templates (id, user_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.Name, t.Description, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}

	for i := range t.Exercises {
		te := &t.Exercises[i]
		_, err = tx.Exec(ctx,
			`INSERT INTO template_exercises (id, template_id, exercise_id, exercise_order,
			 superset_group_id, superset_order, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			te.ID, te.TemplateID, te.ExerciseID, te.Order,
			te.SupersetGroupID, te.SupersetOrder, te.Notes)
		if err != nil {
			return fmt.Errorf("inserting template exercise: %w", err)
		}
		for j := range te.Sets {
			ts := &te.Sets[j]
			_, err = tx.Exec(ctx,
				`INSERT INTO template_sets (id, template_exercise_id, set_number, target_reps,
				 target_weight, is_warmup, target_rest_seconds, tempo)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				ts.ID, ts.TemplateExerciseID, ts.SetNumber, ts.TargetReps,
				ts.TargetWeight, ts.IsWarmup, ts.TargetRestSeconds, ts.Tempo)
			if err != nil {
				return fmt.Errorf("inserting template set: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// GetTemplate retrieves a user's template with its full exercise graph.
func (db *DB) GetTemplate(ctx context.Context, userID int, id uuid.UUID) (*models.Template, error) {
	var t models.Template
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		 FROM workout_templates WHERE id = $1 AND user_id = $2`,
		id, userID).
		Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workout.NotFound("template", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying template: %w", err)
	}

	if err := db.loadTemplateExercises(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates retrieves a user's templates with their graphs, newest first.
func (db *DB) ListTemplates(ctx context.Context, userID int) ([]models.Template, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		 FROM workout_templates WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	result := []models.Template{}
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := db.loadTemplateExercises(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (db *DB) loadTemplateExercises(ctx context.Context, t *models.Template) error {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, template_id, exercise_id, exercise_order, superset_group_id, superset_order, notes
		 FROM template_exercises WHERE template_id = $1 ORDER BY exercise_order`,
		t.ID)
	if err != nil {
		return fmt.Errorf("querying template exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var te models.TemplateExercise
		if err := rows.Scan(&te.ID, &te.TemplateID, &te.ExerciseID, &te.Order,
			&te.SupersetGroupID, &te.SupersetOrder, &te.Notes); err != nil {
			return fmt.Errorf("scanning template exercise: %w", err)
		}
		t.Exercises = append(t.Exercises, te)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range t.Exercises {
		te := &t.Exercises[i]
		setRows, err := db.Pool.Query(ctx,
			`SELECT id, template_exercise_id, set_number, target_reps, target_weight,
			 is_warmup, target_rest_seconds, tempo
			 FROM template_sets WHERE template_exercise_id = $1 ORDER BY set_number`,
			te.ID)
		if err != nil {
			return fmt.Errorf("querying template sets: %w", err)
		}
		for setRows.Next() {
			var ts models.TemplateSet
			if err := setRows.Scan(&ts.ID, &ts.TemplateExerciseID, &ts.SetNumber, &ts.TargetReps,
				&ts.TargetWeight, &ts.IsWarmup, &ts.TargetRestSeconds, &ts.Tempo); err != nil {
				setRows.Close()
				return fmt.Errorf("scanning template set: %w", err)
			}
			te.Sets = append(te.Sets, ts)
		}
		if err := setRows.Err(); err != nil {
			setRows.Close()
			return err
		}
		setRows.Close()
	}
	return nil
}
