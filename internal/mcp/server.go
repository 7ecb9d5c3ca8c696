package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training server. Query exercises, templates, logged sessions and progressive-overload recommendations. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolListTemplates, Handler: h.listTemplates},
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolGetSessionSummary, Handler: h.getSessionSummary},
		server.ServerTool{Tool: toolGetRecommendations, Handler: h.getRecommendations},
		server.ServerTool{Tool: toolGetExerciseProgress, Handler: h.getExerciseProgress},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resExerciseCatalog = mcp.NewResource(
	"liftlog://exercises",
	"Exercise Catalog",
	mcp.WithResourceDescription("Every exercise in the catalog"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"liftlog://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The user's 20 most recent workout sessions"),
	mcp.WithMIMEType("application/json"),
)
