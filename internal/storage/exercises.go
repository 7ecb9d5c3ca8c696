package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const exerciseColumns = `id, name, category, muscle_groups, equipment, instructions, created_at`

func scanExercise(row pgx.Row) (*models.Exercise, error) {
	var e models.Exercise
	if err := row.Scan(&e.ID, &e.Name, &e.Category, &e.MuscleGroups, &e.Equipment, &e.Instructions, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExercises returns the whole catalog ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+exerciseColumns+` FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// GetExercise looks an exercise up by id.
func (db *DB) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	e, err := scanExercise(db.Pool.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// FindExerciseByName looks an exercise up by case-insensitive name.
func (db *DB) FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error) {
	e, err := scanExercise(db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE LOWER(name) = LOWER($1)`, name))
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// CreateExercise inserts e. A duplicate name reports ErrConflict.
func (db *DB) CreateExercise(ctx context.Context, e *models.Exercise) error {
	e.ID = uuid.NewString()
	if e.MuscleGroups == nil {
		e.MuscleGroups = []string{}
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (id, name, category, muscle_groups, equipment, instructions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.Name, e.Category, e.MuscleGroups, e.Equipment, e.Instructions).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating exercise %q: %w", e.Name, mapErr(err))
	}
	return nil
}
