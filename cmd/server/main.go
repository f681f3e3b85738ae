package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/taiganautcapital/thekidvault/internal/analytics"
	"github.com/taiganautcapital/thekidvault/internal/api"
	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/learning"
	"github.com/taiganautcapital/thekidvault/internal/live"
	"github.com/taiganautcapital/thekidvault/internal/platform/cache"
	"github.com/taiganautcapital/thekidvault/internal/platform/config"
	"github.com/taiganautcapital/thekidvault/internal/platform/database"
	"github.com/taiganautcapital/thekidvault/internal/platform/sqlite"
	"github.com/taiganautcapital/thekidvault/internal/storage"
	"github.com/taiganautcapital/thekidvault/internal/subscribe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	cat, err := loadCatalog(cfg.ContentPath)
	if err != nil {
		return err
	}

	deps, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	hub := live.NewHub()
	defer hub.Close()

	svc := learning.NewService(learning.Config{
		Catalog: cat,
		KV:      deps.kv,
		Events:  deps.events,
		Hub:     hub,
	})

	subscriber := subscribe.New(subscribe.Options{
		APIKey:  cfg.Kit.APIKey,
		FormID:  cfg.Kit.FormID,
		BaseURL: cfg.Kit.BaseURL,
	})
	if !subscriber.Configured() {
		slog.Warn("newsletter subscription not configured")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newHandler(svc, subscriber, cfg.CORS.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	// Live streams are hijacked connections that Shutdown does not wait for.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func newHandler(svc *learning.Service, subscriber *subscribe.Client, origins []string) http.Handler {
	return api.NewRouter(api.NewHandler(svc, subscriber, origins))
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default()
	}
	return catalog.LoadDir(dir)
}

// backends holds the storage and analytics handles opened at startup.
type backends struct {
	kv      storage.KV
	events  analytics.Logger
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (_ *backends, err error) {
	b := &backends{events: analytics.Nop{}}
	defer func() {
		if err != nil {
			b.close()
		}
	}()

	var db *database.DB
	if cfg.NeedsDatabase() {
		db, err = database.Open(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		b.kv = storage.NewMemoryKV()
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
		sdb, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { sdb.Close() })
		if b.kv, err = storage.NewSQLiteKV(ctx, sdb.SQL); err != nil {
			return nil, err
		}
	case config.DriverRedis:
		c, err := cache.Open(ctx, cache.Options{URL: cfg.Cache.URL, Prefix: cfg.Cache.Prefix})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { c.Close() })
		if b.kv, err = storage.NewRedisKV(c.Client, c.Prefix); err != nil {
			return nil, err
		}
	case config.DriverPostgres:
		if b.kv, err = storage.NewPostgresKV(ctx, db.Pool); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Analytics.Enabled {
		pg := analytics.NewPostgres(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		b.events = pg
	}
	return b, nil
}
