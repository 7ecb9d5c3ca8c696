package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. It is always scoped to
// one user. HTTPClient (remote, bearer token) and StoreSource (local store)
// satisfy it.
type DataSource interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error)
	ListSessions(ctx context.Context, limit int) ([]models.WorkoutSession, error)
	GetSession(ctx context.Context, id string) (*models.WorkoutSession, error)
	ListSessionSets(ctx context.Context, sessionID string) ([]models.WorkoutSet, error)
	ExerciseProgress(ctx context.Context, exerciseID string, days int) ([]models.ProgressPoint, error)
}

// StoreSource serves one user's data straight from a storage.Store.
type StoreSource struct {
	Store  storage.Store
	UserID string
}

var _ DataSource = StoreSource{}

func (s StoreSource) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	return s.Store.ListExercises(ctx)
}

func (s StoreSource) ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	return s.Store.ListTemplates(ctx, s.UserID)
}

func (s StoreSource) ListSessions(ctx context.Context, limit int) ([]models.WorkoutSession, error) {
	return s.Store.ListSessions(ctx, s.UserID, limit)
}

func (s StoreSource) GetSession(ctx context.Context, id string) (*models.WorkoutSession, error) {
	return s.Store.GetSession(ctx, id, s.UserID)
}

// ListSessionSets checks the session belongs to the user before listing.
func (s StoreSource) ListSessionSets(ctx context.Context, sessionID string) ([]models.WorkoutSet, error) {
	if _, err := s.Store.GetSession(ctx, sessionID, s.UserID); err != nil {
		return nil, err
	}
	return s.Store.ListSessionSets(ctx, sessionID)
}

// ExerciseProgress buckets the last days of the user's sets for one exercise.
func (s StoreSource) ExerciseProgress(ctx context.Context, exerciseID string, days int) ([]models.ProgressPoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	sets, err := s.Store.ListExerciseSetsSince(ctx, s.UserID, exerciseID, since)
	if err != nil {
		return nil, err
	}
	return overload.DailyProgress(sets), nil
}
