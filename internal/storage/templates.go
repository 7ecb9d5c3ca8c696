package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const targetColumns = `we.id, we.template_id, we.exercise_id, we.target_sets, we.target_reps,
	we.target_weight, we.rest_seconds, we.order_index,
	e.id, e.name, e.category, e.muscle_groups, e.equipment, e.instructions, e.created_at`

func scanTarget(row pgx.Row) (*models.WorkoutExercise, error) {
	var we models.WorkoutExercise
	var e models.Exercise
	if err := row.Scan(&we.ID, &we.TemplateID, &we.ExerciseID, &we.TargetSets, &we.TargetReps,
		&we.TargetWeight, &we.RestSeconds, &we.OrderIndex,
		&e.ID, &e.Name, &e.Category, &e.MuscleGroups, &e.Equipment, &e.Instructions, &e.CreatedAt); err != nil {
		return nil, err
	}
	we.Exercise = &e
	return &we, nil
}

// ListTemplates returns a user's templates, newest first, with exercises.
func (db *DB) ListTemplates(ctx context.Context, userID string) ([]models.WorkoutTemplate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM workout_templates
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	result := []models.WorkoutTemplate{}
	for rows.Next() {
		var t models.WorkoutTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := db.attachTargets(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachTargets loads the exercises of every template in ts in one query.
func (db *DB) attachTargets(ctx context.Context, ts []models.WorkoutTemplate) error {
	if len(ts) == 0 {
		return nil
	}
	ids := make([]string, len(ts))
	byID := make(map[string]*models.WorkoutTemplate, len(ts))
	for i := range ts {
		ids[i] = ts[i].ID
		ts[i].Exercises = []models.WorkoutExercise{}
		byID[ts[i].ID] = &ts[i]
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+targetColumns+`
		FROM workout_exercises we
		JOIN exercises e ON e.id = we.exercise_id
		WHERE we.template_id = ANY($1::uuid[])
		ORDER BY we.template_id, we.order_index`, ids)
	if err != nil {
		return fmt.Errorf("querying template exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		we, err := scanTarget(rows)
		if err != nil {
			return fmt.Errorf("scanning template exercise: %w", err)
		}
		if t, ok := byID[we.TemplateID]; ok {
			t.Exercises = append(t.Exercises, *we)
		}
	}
	return rows.Err()
}

// GetTemplate returns one of a user's templates with exercises.
func (db *DB) GetTemplate(ctx context.Context, id, userID string) (*models.WorkoutTemplate, error) {
	return db.getTemplate(ctx, `id = $1 AND user_id = $2`, id, userID)
}

// FindTemplateByName returns a user's template with the exact name.
func (db *DB) FindTemplateByName(ctx context.Context, name, userID string) (*models.WorkoutTemplate, error) {
	return db.getTemplate(ctx, `name = $1 AND user_id = $2`, name, userID)
}

func (db *DB) getTemplate(ctx context.Context, where string, args ...any) (*models.WorkoutTemplate, error) {
	var t models.WorkoutTemplate
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM workout_templates WHERE `+where+` LIMIT 1`, args...).
		Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	ts := []models.WorkoutTemplate{t}
	if err := db.attachTargets(ctx, ts); err != nil {
		return nil, err
	}
	return &ts[0], nil
}

// CreateTemplate inserts t and its exercises in one transaction.
func (db *DB) CreateTemplate(ctx context.Context, t *models.WorkoutTemplate) error {
	t.ID = uuid.NewString()
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO workout_templates (id, user_id, name, description)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at
		`, t.ID, t.UserID, t.Name, t.Description).Scan(&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating template: %w", mapErr(err))
		}
		return putTargets(ctx, tx, t)
	})
}

// UpdateTemplate replaces name, description and exercise list. Exercises
// that stay keep their ids so logged sets remain attached; removing one
// with logged sets reports ErrConflict.
func (db *DB) UpdateTemplate(ctx context.Context, t *models.WorkoutTemplate) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE workout_templates
			SET name = $3, description = $4, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING created_at, updated_at
		`, t.ID, t.UserID, t.Name, t.Description).Scan(&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		return putTargets(ctx, tx, t)
	})
}

func putTargets(ctx context.Context, tx pgx.Tx, t *models.WorkoutTemplate) error {
	exerciseIDs := make([]string, 0, len(t.Exercises))
	for i := range t.Exercises {
		we := &t.Exercises[i]
		we.TemplateID = t.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO workout_exercises
				(id, template_id, exercise_id, target_sets, target_reps, target_weight, rest_seconds, order_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (template_id, exercise_id) DO UPDATE SET
				target_sets = EXCLUDED.target_sets,
				target_reps = EXCLUDED.target_reps,
				target_weight = EXCLUDED.target_weight,
				rest_seconds = EXCLUDED.rest_seconds,
				order_index = EXCLUDED.order_index
			RETURNING id
		`, uuid.NewString(), t.ID, we.ExerciseID, we.TargetSets, we.TargetReps,
			we.TargetWeight, we.RestSeconds, we.OrderIndex).Scan(&we.ID)
		if err != nil {
			if errors.Is(mapErr(err), ErrConflict) {
				// foreign key on exercise_id
				return fmt.Errorf("exercise %s: %w", we.ExerciseID, ErrNotFound)
			}
			return fmt.Errorf("upserting template exercise: %w", err)
		}
		exerciseIDs = append(exerciseIDs, we.ExerciseID)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM workout_exercises
		WHERE template_id = $1 AND NOT (exercise_id = ANY($2::uuid[]))
	`, t.ID, exerciseIDs); err != nil {
		return fmt.Errorf("removing template exercises: %w", mapErr(err))
	}

	rows, err := tx.Query(ctx, `
		SELECT `+targetColumns+`
		FROM workout_exercises we
		JOIN exercises e ON e.id = we.exercise_id
		WHERE we.template_id = $1
		ORDER BY we.order_index`, t.ID)
	if err != nil {
		return fmt.Errorf("reloading template exercises: %w", err)
	}
	defer rows.Close()

	t.Exercises = []models.WorkoutExercise{}
	for rows.Next() {
		we, err := scanTarget(rows)
		if err != nil {
			return fmt.Errorf("scanning template exercise: %w", err)
		}
		t.Exercises = append(t.Exercises, *we)
	}
	return rows.Err()
}

// DeleteTemplate removes a template and its exercises. Sessions keep their
// history with template_id cleared; a template with logged sets reports
// ErrConflict.
func (db *DB) DeleteTemplate(ctx context.Context, id, userID string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting template: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
