package storage

import (
	"context"
	"errors"
	"time"

	"github.com/claude/liftlog/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSessionCompleted = errors.New("session already completed")
)

// Store is the data access surface used by the server, auth, ingest and MCP
// packages. Owned entities are always looked up together with the owner's
// id; another user's record reports ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id string) (*models.Exercise, error)
	FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error)
	CreateExercise(ctx context.Context, e *models.Exercise) error

	ListTemplates(ctx context.Context, userID string) ([]models.WorkoutTemplate, error)
	GetTemplate(ctx context.Context, id, userID string) (*models.WorkoutTemplate, error)
	FindTemplateByName(ctx context.Context, name, userID string) (*models.WorkoutTemplate, error)
	CreateTemplate(ctx context.Context, t *models.WorkoutTemplate) error
	UpdateTemplate(ctx context.Context, t *models.WorkoutTemplate) error
	DeleteTemplate(ctx context.Context, id, userID string) error

	ListSessions(ctx context.Context, userID string, limit int) ([]models.WorkoutSession, error)
	GetSession(ctx context.Context, id, userID string) (*models.WorkoutSession, error)
	SessionExists(ctx context.Context, userID, name string, startedAt time.Time) (bool, error)
	CreateSession(ctx context.Context, s *models.WorkoutSession) error
	CompleteSession(ctx context.Context, id, userID string, at time.Time) (*models.WorkoutSession, error)
	DeleteSession(ctx context.Context, id, userID string) error

	ListSessionSets(ctx context.Context, sessionID string) ([]models.WorkoutSet, error)
	CreateSet(ctx context.Context, set *models.WorkoutSet) error
	ListExerciseSetsSince(ctx context.Context, userID, exerciseID string, since time.Time) ([]models.WorkoutSet, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)

// DefaultSessionLimit and MaxSessionLimit bound ListSessions.
const (
	DefaultSessionLimit = 20
	MaxSessionLimit     = 200
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSessionLimit
	}
	if limit > MaxSessionLimit {
		return MaxSessionLimit
	}
	return limit
}
