// Package app assembles the listings server from configuration: tracing, the
// listing store, sample data, and the HTTP handler.
//
// Lifecycle: New connects the store and ensures it is seeded; Handler or Run
// serve requests; Close releases the store and flushes traces.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-listings/internal/config"
	httpapi "github.com/tbourn/go-listings/internal/http"
	"github.com/tbourn/go-listings/internal/mongostore"
	"github.com/tbourn/go-listings/internal/observability"
	"github.com/tbourn/go-listings/internal/repo"
	"github.com/tbourn/go-listings/internal/seed"
	"github.com/tbourn/go-listings/internal/services"
	"github.com/tbourn/go-listings/internal/validation"
)

// App owns the store connection and the HTTP handler for one process.
type App struct {
	Config  config.Config
	Store   services.ListingRepo
	Service *services.ListingService

	handler         http.Handler
	shutdownTracing observability.Shutdown
}

// New builds an App: tracing first, then the store, then (optionally) the
// sample data, then the router. Anything opened before a failure is closed
// again.
func New(ctx context.Context, cfg config.Config, version string) (*App, error) {
	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version, observability.ResourceAttributes(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	a := &App{
		Config:          cfg,
		Store:           store,
		Service:         services.NewListingService(store),
		shutdownTracing: shutdownTracing,
	}

	if cfg.Seed.OnStart {
		if _, err := Seed(ctx, store, cfg.Seed.File, false); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	if err := httpapi.RegisterRoutes(engine, a.Service, store, cfg); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.handler = httpapi.Handler(engine, cfg)

	return a, nil
}

// OpenStore connects the store selected by cfg.Store.Driver. The SQLite store
// is migrated before it is returned.
func OpenStore(ctx context.Context, cfg config.Config) (services.ListingRepo, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		m := cfg.Store.Mongo
		client, err := mongostore.Connect(ctx, m.URI, m.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", m.Database).Str("collection", m.Collection).Msg("connected to mongodb")
		return mongostore.NewListingStore(client, m.Database, m.Collection), nil

	case config.DriverSQLite:
		opts := []repo.Option{repo.WithLogLevel(logger.Warn)}
		if cfg.OTEL.Enabled {
			opts = append(opts, repo.WithTracing())
		}
		db, err := repo.OpenSQLite(cfg.Store.DBPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			if sqlDB, e := db.DB(); e == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Str("path", cfg.Store.DBPath).Msg("opened sqlite store")
		return repo.NewListingStore(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Seed loads sample listings from file (embedded data when empty), validates
// them, and inserts them. Without reset nothing happens unless the store is
// empty; with reset every existing listing is removed first.
func Seed(ctx context.Context, store services.ListingRepo, file string, reset bool) (int, error) {
	items, err := seed.Load(file)
	if err != nil {
		return 0, err
	}
	ls, err := seed.Build(validation.New(), items, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if reset {
		return seed.Reset(ctx, store, ls)
	}
	return seed.EnsureSeeded(ctx, store, ls)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run listens on the configured port and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within Config.ShutdownTimeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       a.Config.ReadTimeout,
		ReadHeaderTimeout: a.Config.ReadHeaderTimeout,
		WriteTimeout:      a.Config.WriteTimeout,
		IdleTimeout:       a.Config.IdleTimeout,
		MaxHeaderBytes:    a.Config.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := a.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info().Dur("timeout", timeout).Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the store and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
