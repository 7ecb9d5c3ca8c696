package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/claude/liftlog/internal/auth"
	"github.com/claude/liftlog/internal/cache"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/logging"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const sessionSweepInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	bootLog := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := godotenv.Load(); err != nil {
		bootLog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser := logging.New(cfg.Log)
	log.Info("LiftLog starting", "version", Version, "driver", cfg.Database.Driver)

	if err := run(cfg, *migrateOnly, log); err != nil {
		log.Error("liftlog stopped with error", "error", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
	_ = logCloser.Close()
}

func run(cfg *config.Config, migrateOnly bool, log *slog.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	// Storage
	var (
		store      storage.Store
		collectors []prometheus.Collector
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")
		if migrateOnly {
			log.Info("migrate-only: exiting")
			return nil
		}

		db, err := storage.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connecting database: %w", err)
		}
		closers = append(closers, closerFunc(func() error { db.Close(); return nil }))
		collectors = append(collectors, pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}))
		store = db
		log.Info("database connected")
	default:
		if migrateOnly {
			log.Info("migrate-only: nothing to migrate for memory driver")
			return nil
		}
		store = storage.NewMemory()
		log.Warn("using in-memory storage, data is lost on restart")
	}

	reg := metrics.NewRegistry(collectors...)
	m := metrics.NewManager("liftlog", "server", reg)

	// Login sessions and rate limiting
	var (
		sessions auth.SessionStore
		limiter  server.RateLimiter
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("failed to ping redis", "addr", cfg.Redis.Addr, "error", err)
		}
		sessions = auth.NewRedisSessions(rdb, cfg.Auth.SessionTTL)
		limiter = redis_rate.NewLimiter(rdb)
		log.Info("redis connected", "addr", cfg.Redis.Addr)
	} else {
		mem := auth.NewMemorySessions(cfg.Auth.SessionTTL)
		sessions = mem
		go sweepSessions(ctx, mem, log)
		log.Info("rate limiting disabled without redis")
	}

	events := auth.NewBroker()
	closers = append(closers, closerFunc(func() error { events.Close(); return nil }))
	authSvc := auth.NewService(store, sessions, events, cfg.Auth.BcryptCost, log)

	catalog := cache.NewCatalog(store, cfg.Cache.SizeMB, cfg.Cache.TTL, log)

	srv := server.New(server.Deps{
		Store:           store,
		Auth:            authSvc,
		Catalog:         catalog,
		Alpha:           alpha.NewProvider(store, log, m),
		Metrics:         m,
		Gatherer:        reg,
		Limiter:         limiter,
		RateLimitPerMin: cfg.Auth.RateLimitPerMin,
		AuthMode:        cfg.Auth.Mode,
		DevEmail:        cfg.Auth.DevEmail,
		Log:             log,
	})

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		closers = append(closers, tsServer)

		lc, err := tsServer.LocalClient()
		if err != nil {
			return fmt.Errorf("tsnet local client: %w", err)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname, "auth_mode", cfg.Auth.Mode)
	} else {
		addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "auth_mode", cfg.Auth.Mode)
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	hits, misses := catalog.Stats()
	log.Info("server stopped", "catalog_hits", hits, "catalog_misses", misses)
	return nil
}

// sweepSessions drops expired in-memory login sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions *auth.MemorySessions, log *slog.Logger) {
	t := time.NewTicker(sessionSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Sweep(); n > 0 {
				log.Debug("expired sessions swept", "count", n)
			}
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
