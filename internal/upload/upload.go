// Package upload walks a directory of Alpha Progression CSV exports and
// sends each new file to a LiftLog server, remembering what was sent in a
// local importstate database.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/importstate"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"go.uber.org/multierr"
)

// Sender delivers one export to the server. *Client implements it.
type Sender interface {
	SendAlphaCSV(ctx context.Context, data []byte) (*ingest.Result, error)
}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsImported int
	SessionsSkipped  int
	SetsImported     int
	ExercisesCreated int
	TemplatesCreated int
}

// Uploader sends every not-yet-imported CSV under a path.
type Uploader struct {
	client Sender
	state  *importstate.DB
	server string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. server keys the import state so the same file
// can be sent to several servers. client may be nil in dry-run mode.
func New(client Sender, state *importstate.DB, server string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		server: server,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads path, which is a single CSV file or a directory searched
// recursively for *.csv. Per-file failures do not stop the run; they are
// combined into the returned error.
func (u *Uploader) Run(ctx context.Context, path string) (*Stats, error) {
	files, err := collectFiles(path)
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)
	u.log.Info("found export files", "count", len(files), "path", path)

	var errs error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, multierr.Append(errs, err)
		}
		if err := u.file(ctx, f); err != nil {
			u.stats.FilesErrored++
			u.log.Error("file failed", "file", f, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", filepath.Base(f), err))
		}
	}
	return &u.stats, errs
}

func (u *Uploader) file(ctx context.Context, path string) error {
	hash, err := importstate.HashFile(path)
	if err != nil {
		return err
	}
	done, err := u.state.IsImported(ctx, hash, u.server)
	if err != nil {
		return err
	}
	if done {
		u.stats.FilesSkipped++
		u.log.Debug("already imported", "file", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	if u.dryRun {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return err
		}
		sets := 0
		for _, s := range sessions {
			for _, e := range s.Exercises {
				sets += len(e.WorkingSets())
			}
		}
		u.stats.SessionsImported += len(sessions)
		u.stats.SetsImported += sets
		u.log.Info("dry run: parsed", "file", path, "sessions", len(sessions), "sets", sets)
		return nil
	}

	res, err := u.client.SendAlphaCSV(ctx, data)
	if res != nil {
		u.add(res)
	}
	if err != nil {
		// Partially imported files are retried next run; sessions already
		// stored are skipped by the server.
		if errors.Is(err, ErrPartial) {
			u.log.Warn("partial import", "file", path, "sessions", res.SessionsImported, "error", err)
		}
		return err
	}

	u.stats.FilesUploaded++
	u.log.Info("imported", "file", path,
		"sessions", res.SessionsImported, "skipped", res.Skipped, "sets", res.SetsImported)
	return u.state.MarkImported(ctx, importstate.Record{
		Hash:     hash,
		Server:   u.server,
		Path:     path,
		Sessions: res.SessionsImported,
		Sets:     res.SetsImported,
	})
}

func (u *Uploader) add(res *ingest.Result) {
	u.stats.SessionsImported += res.SessionsImported
	u.stats.SessionsSkipped += res.Skipped
	u.stats.SetsImported += res.SetsImported
	u.stats.ExercisesCreated += res.ExercisesCreated
	u.stats.TemplatesCreated += res.TemplatesCreated
}

// collectFiles returns path itself when it is a file, else every *.csv
// below it in lexical order.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}
