package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/mcp"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("LIFTLOG_URL"), "LiftLog server URL")
	token := flag.String("token", os.Getenv("LIFTLOG_TOKEN"), "bearer token (not needed for tailscale or dev auth)")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-mcp -server <URL> [-token <token>]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ds := mcp.NewHTTPClient(*serverURL, *token)
	s := mcp.New(ds, Version, log)

	log.Info("LiftLog MCP server starting", "version", Version, "server", *serverURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
