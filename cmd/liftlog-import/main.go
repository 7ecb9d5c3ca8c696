package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/liftlog/internal/importstate"
	"github.com/claude/liftlog/internal/upload"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("LIFTLOG_URL"), "LiftLog server URL (e.g. https://liftlog.tail1234.ts.net)")
	token := flag.String("token", os.Getenv("LIFTLOG_TOKEN"), "bearer token from POST /api/v1/auth/signin")
	path := flag.String("path", "", "Alpha Progression CSV export, or a directory of them")
	stateDir := flag.String("state-dir", "", "import state directory (default ~/.liftlog-import)")
	dryRun := flag.Bool("dry-run", false, "parse files but don't send to server")
	history := flag.Int("history", 0, "print the N most recent imports and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-import", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *path == "" && *history == 0 {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -server <URL> -token <token> -path <export.csv|dir> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun && *history == 0 {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".liftlog-import")
	}
	state, err := importstate.Open(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *history > 0 {
		if err := printHistory(state, *history); err != nil {
			log.Error("failed to read history", "error", err)
			os.Exit(1)
		}
		return
	}

	// Client is nil in dry-run mode
	var (
		sender upload.Sender
		server string
	)
	if !*dryRun {
		client := upload.NewClient(*serverURL, *token)
		sender, server = client, client.ServerURL()
	} else {
		log.Info("DRY RUN mode: files will be parsed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(sender, state, server, *dryRun, log).Run(ctx, *path)
	printStats(stats)
	if err != nil {
		log.Error("import finished with errors", "error", err)
		state.Close()
		os.Exit(1)
	}
	log.Info("import complete")
}

func printHistory(state *importstate.DB, n int) error {
	records, err := state.Recent(context.Background(), n)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%s  %-40s  %3d sessions  %4d sets  %s\n",
			r.ImportedAt.Local().Format("2006-01-02 15:04"), r.Server, r.Sessions, r.Sets, r.Path)
	}
	return nil
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("  Files total:        %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:     %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:      %d (already imported)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:      %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sessions imported:  %d\n", stats.SessionsImported)
	fmt.Printf("  Sessions skipped:   %d (already on server)\n", stats.SessionsSkipped)
	fmt.Printf("  Sets imported:      %d\n", stats.SetsImported)
	fmt.Printf("  Exercises created:  %d\n", stats.ExercisesCreated)
	fmt.Printf("  Templates created:  %d\n", stats.TemplatesCreated)
	fmt.Println()
}
