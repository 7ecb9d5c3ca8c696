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

const sessionColumns = `id, user_id, template_id, name, started_at, completed_at, notes`

func scanSession(row pgx.Row) (*models.WorkoutSession, error) {
	var s models.WorkoutSession
	if err := row.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.Name, &s.StartedAt, &s.CompletedAt, &s.Notes); err != nil {
		return nil, err
	}
	return &s, nil
}

// attachTemplates joins each session's template (when it still exists).
func (db *DB) attachTemplates(ctx context.Context, userID string, sessions []models.WorkoutSession) error {
	need := false
	for _, s := range sessions {
		if s.TemplateID != nil {
			need = true
			break
		}
	}
	if !need {
		return nil
	}

	templates, err := db.ListTemplates(ctx, userID)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.WorkoutTemplate, len(templates))
	for i := range templates {
		byID[templates[i].ID] = &templates[i]
	}
	for i := range sessions {
		if id := sessions[i].TemplateID; id != nil {
			sessions[i].Template = byID[*id]
		}
	}
	return nil
}

// ListSessions returns a user's most recent sessions, newest first.
func (db *DB) ListSessions(ctx context.Context, userID string, limit int) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM workout_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	result := []models.WorkoutSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := db.attachTemplates(ctx, userID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetSession returns one of a user's sessions with its template.
func (db *DB) GetSession(ctx context.Context, id, userID string) (*models.WorkoutSession, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	one := []models.WorkoutSession{*s}
	if err := db.attachTemplates(ctx, userID, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// SessionExists reports whether the user already has a session with this
// name starting at exactly startedAt. Used to make imports idempotent.
func (db *DB) SessionExists(ctx context.Context, userID, name string, startedAt time.Time) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workout_sessions WHERE user_id = $1 AND name = $2 AND started_at = $3
		)`, userID, name, startedAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return exists, nil
}

// CreateSession starts a session. A template, when given, must belong to the
// same user and supplies the default name.
func (db *DB) CreateSession(ctx context.Context, s *models.WorkoutSession) error {
	if s.TemplateID != nil {
		t, err := db.GetTemplate(ctx, *s.TemplateID, s.UserID)
		if err != nil {
			return fmt.Errorf("template %s: %w", *s.TemplateID, err)
		}
		if s.Name == "" {
			s.Name = t.Name
		}
		s.Template = t
	}

	s.ID = uuid.NewString()
	var startedAt any
	if !s.StartedAt.IsZero() {
		startedAt = s.StartedAt
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO workout_sessions (id, user_id, template_id, name, started_at, notes)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), $6)
		RETURNING started_at
	`, s.ID, s.UserID, s.TemplateID, s.Name, startedAt, s.Notes).Scan(&s.StartedAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", mapErr(err))
	}
	return nil
}

// CompleteSession stamps completed_at. Completing twice reports
// ErrSessionCompleted.
func (db *DB) CompleteSession(ctx context.Context, id, userID string, at time.Time) (*models.WorkoutSession, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx, `
		UPDATE workout_sessions SET completed_at = $3
		WHERE id = $1 AND user_id = $2 AND completed_at IS NULL
		RETURNING `+sessionColumns, id, userID, at))
	if err == nil {
		one := []models.WorkoutSession{*s}
		if err := db.attachTemplates(ctx, userID, one); err != nil {
			return nil, err
		}
		return &one[0], nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("completing session: %w", mapErr(err))
	}

	// distinguish a missing session from a finished one
	if _, err := db.GetSession(ctx, id, userID); err != nil {
		return nil, err
	}
	return nil, ErrSessionCompleted
}

// DeleteSession removes a session together with its sets.
func (db *DB) DeleteSession(ctx context.Context, id, userID string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
