package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const setColumns = `s.id, s.session_id, s.workout_exercise_id, s.set_number, s.actual_reps,
	s.actual_weight, s.rest_seconds, s.notes, s.created_at, ` + targetColumns

const setJoins = `
	FROM workout_sets s
	JOIN workout_exercises we ON we.id = s.workout_exercise_id
	JOIN exercises e ON e.id = we.exercise_id`

func scanSets(rows pgx.Rows) ([]models.WorkoutSet, error) {
	defer rows.Close()

	result := []models.WorkoutSet{}
	for rows.Next() {
		var s models.WorkoutSet
		var we models.WorkoutExercise
		var e models.Exercise
		if err := rows.Scan(&s.ID, &s.SessionID, &s.WorkoutExerciseID, &s.SetNumber, &s.ActualReps,
			&s.ActualWeight, &s.RestSeconds, &s.Notes, &s.CreatedAt,
			&we.ID, &we.TemplateID, &we.ExerciseID, &we.TargetSets, &we.TargetReps,
			&we.TargetWeight, &we.RestSeconds, &we.OrderIndex,
			&e.ID, &e.Name, &e.Category, &e.MuscleGroups, &e.Equipment, &e.Instructions, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		we.Exercise = &e
		s.WorkoutExercise = &we
		result = append(result, s)
	}
	return result, rows.Err()
}

// ListSessionSets returns every set of a session joined with its target and
// exercise, in logging order.
func (db *DB) ListSessionSets(ctx context.Context, sessionID string) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+setColumns+setJoins+`
		WHERE s.session_id = $1
		ORDER BY s.created_at, s.set_number, s.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	return scanSets(rows)
}

// ListExerciseSetsSince returns a user's sets of one exercise logged at or
// after since, oldest first.
func (db *DB) ListExerciseSetsSince(ctx context.Context, userID, exerciseID string, since time.Time) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+setColumns+setJoins+`
		JOIN workout_sessions ws ON ws.id = s.session_id
		WHERE ws.user_id = $1 AND we.exercise_id = $2 AND s.created_at >= $3
		ORDER BY s.created_at, s.set_number, s.id`, userID, exerciseID, since)
	if err != nil {
		return nil, fmt.Errorf("querying exercise sets: %w", err)
	}
	return scanSets(rows)
}

// CreateSet logs a set. The session row is locked so a concurrent
// CompleteSession cannot slip in between the check and the insert. The
// workout exercise must come from one of the session owner's templates (the
// session's own template when it has one).
func (db *DB) CreateSet(ctx context.Context, set *models.WorkoutSet) error {
	set.ID = uuid.NewString()
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		var (
			userID      string
			templateID  *string
			completedAt *time.Time
		)
		err := tx.QueryRow(ctx, `
			SELECT user_id, template_id, completed_at FROM workout_sessions
			WHERE id = $1 FOR UPDATE`, set.SessionID).Scan(&userID, &templateID, &completedAt)
		if err != nil {
			return fmt.Errorf("session %s: %w", set.SessionID, mapErr(err))
		}
		if completedAt != nil {
			return ErrSessionCompleted
		}

		var ok bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM workout_exercises we
				JOIN workout_templates t ON t.id = we.template_id
				WHERE we.id = $1 AND t.user_id = $2 AND ($3::uuid IS NULL OR t.id = $3::uuid)
			)`, set.WorkoutExerciseID, userID, templateID).Scan(&ok)
		if err != nil {
			return fmt.Errorf("checking workout exercise: %w", mapErr(err))
		}
		if !ok {
			return fmt.Errorf("workout exercise %s: %w", set.WorkoutExerciseID, ErrNotFound)
		}

		var createdAt any
		if !set.CreatedAt.IsZero() {
			createdAt = set.CreatedAt
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO workout_sets
				(id, session_id, workout_exercise_id, set_number, actual_reps, actual_weight, rest_seconds, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
			RETURNING created_at
		`, set.ID, set.SessionID, set.WorkoutExerciseID, set.SetNumber, set.ActualReps,
			set.ActualWeight, set.RestSeconds, set.Notes, createdAt).Scan(&set.CreatedAt)
		if err != nil {
			if errors.Is(mapErr(err), ErrConflict) {
				return fmt.Errorf("set %d: %w", set.SetNumber, ErrConflict)
			}
			return fmt.Errorf("inserting set: %w", err)
		}

		we, err := scanTarget(tx.QueryRow(ctx, `SELECT `+targetColumns+`
			FROM workout_exercises we
			JOIN exercises e ON e.id = we.exercise_id
			WHERE we.id = $1`, set.WorkoutExerciseID))
		if err != nil {
			return fmt.Errorf("loading workout exercise: %w", err)
		}
		set.WorkoutExercise = we
		return nil
	})
}
