package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, exercises)
}

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions, err := h.ds.ListSessions(ctx, defaultSessionLimit)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, sessions)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
