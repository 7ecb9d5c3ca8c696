package mcp

import (
	"context"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultSessionLimit = 20
	defaultProgressDays = 30
	maxProgressDays     = 365
)

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List every exercise in the catalog with its category, muscle groups and equipment."),
)

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("List the user's workout templates with their target sets, reps and weights per exercise."),
)

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List the user's most recent workout sessions, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 20.")),
)

var toolGetSessionSummary = mcp.NewTool("get_session_summary",
	mcp.WithDescription("Summarize one session: total sets, total volume (weight x reps), distinct exercises and duration, plus the next-session weight recommendations."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetRecommendations = mcp.NewTool("get_recommendations",
	mcp.WithDescription("Progressive-overload recommendations for a session: +5 when every set met the target reps, otherwise keep the weight."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetExerciseProgress = mcp.NewTool("get_exercise_progress",
	mcp.WithDescription("Per-day average weight and reps for one exercise over a trailing window."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise UUID")),
	mcp.WithNumber("days", mcp.Description("Window length in days (1-365). Defaults to 30.")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(exercises)
}

func (h *handlers) listTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.ds.ListTemplates(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(templates)
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultSessionLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	sessions, err := h.ds.ListSessions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) getSessionSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	sess, sets, err := h.sessionSets(ctx, id)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	recs, err := overload.Recommend(sets)
	if err != nil {
		h.log.Warn("get_session_summary: recommendations failed", "session_id", id, "error", err)
		return mcp.NewToolResultError("session data is malformed"), nil
	}
	return jsonResult(map[string]any{
		"session":         sess,
		"summary":         overload.Summarize(*sess, sets),
		"recommendations": recs,
	})
}

func (h *handlers) getRecommendations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	_, sets, err := h.sessionSets(ctx, id)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	recs, err := overload.Recommend(sets)
	if err != nil {
		h.log.Warn("get_recommendations: malformed sets", "session_id", id, "error", err)
		return mcp.NewToolResultError("session data is malformed"), nil
	}
	return jsonResult(recs)
}

func (h *handlers) getExerciseProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	days := req.GetInt("days", defaultProgressDays)
	if days < 1 || days > maxProgressDays {
		return mcp.NewToolResultError("days must be between 1 and 365"), nil
	}
	points, err := h.ds.ExerciseProgress(ctx, id, days)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"exercise_id": id,
		"days":        days,
		"points":      points,
	})
}

func (h *handlers) sessionSets(ctx context.Context, id string) (*models.WorkoutSession, []models.WorkoutSet, error) {
	sess, err := h.ds.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sets, err := h.ds.ListSessionSets(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sess, sets, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
