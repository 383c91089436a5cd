// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file (with environment overrides) and
// model definitions from the configured models directory.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/recordbase/adapters/clock"
	"github.com/artpar/recordbase/adapters/hasher"
	apihttp "github.com/artpar/recordbase/adapters/http"
	"github.com/artpar/recordbase/adapters/http/admin"
	"github.com/artpar/recordbase/adapters/metrics"
	"github.com/artpar/recordbase/config"
	"github.com/artpar/recordbase/core/events"
	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/storage"
	"github.com/artpar/recordbase/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Store      storage.Store
	Manager    *record.Manager
	Events     *events.Bus
	Metrics    *metrics.Collector
	Router     chi.Router
	HTTPServer *http.Server

	holder *config.Holder
}

// Options provides optional configuration for application initialization.
type Options struct {
	// Version is reported by /version and the admin doctor.
	Version string

	// Hooks are per-model hooks chained after the built-in ones.
	Hooks map[string]record.Hooks

	// Clock overrides the wall clock used for lifecycle timestamps.
	Clock ports.Clock

	// Hasher overrides the bcrypt hasher used for secret fields.
	Hasher ports.Hasher

	// LogOutput overrides where logs are written (default stdout).
	LogOutput io.Writer
}

// New loads the configuration file at path, watches it for changes and
// creates the application.
func New(path string, opts Options) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a, err := NewFromConfig(cfg, opts)
	if err != nil {
		return nil, err
	}

	holder, err := config.NewHolder(path, a.Logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.Metrics != nil {
		holder.SetRecorder(a.Metrics)
	}
	holder.OnChange(a.applyConfig)
	a.holder = holder

	return a, nil
}

// NewFromConfig creates and initializes the application from cfg.
func NewFromConfig(cfg *config.Config, opts Options) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := SetupLogger(cfg.Logging, out)

	logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("models", cfg.Models.Dir).
		Msg("initializing recordbase")

	a := &App{
		Logger: logger,
		Config: cfg,
		Events: events.NewBus(logger.With().Str("component", "events").Logger()),
	}

	store, err := OpenStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.Store = store

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	h := opts.Hasher
	if h == nil {
		h = hasher.NewBcrypt(bcrypt.DefaultCost)
	}

	deps := record.Deps{
		Store:  store,
		Clock:  clk,
		Events: a.Events,
		Logger: logger.With().Str("component", "records").Logger(),
	}
	if a.Metrics != nil {
		deps.Metrics = a.Metrics
	}
	a.Manager = record.NewManager(deps)

	SubscribeAudit(a.Events, logger)

	loaded, err := LoadModels(context.Background(), a.Manager, cfg.Models.Dir, ModelConfig{
		Hasher: h,
		Hooks:  opts.Hooks,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load models: %w", err)
	}
	logger.Info().Int("count", loaded).Msg("models registered")

	if err := a.initHTTP(cfg, opts.Version, h); err != nil {
		store.Close()
		return nil, fmt.Errorf("init http server: %w", err)
	}

	return a, nil
}

// OpenStore opens the record store selected by cfg.Driver.
func OpenStore(cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite", "":
		return storage.NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func (a *App) initHTTP(cfg *config.Config, version string, h ports.Hasher) error {
	health, _ := a.Store.(apihttp.HealthChecker)
	records := apihttp.NewRecordHandler(a.Manager, a.Logger.With().Str("component", "http").Logger(), cfg.Models.PerPage)

	rc := apihttp.RouterConfig{
		Version: version,
		Timeout: cfg.Server.RequestTimeout,
	}
	if a.Metrics != nil {
		rc.Metrics = a.Metrics
		rc.MetricsHandler = a.Metrics.Handler()
		rc.MetricsPath = cfg.Metrics.Path
	}

	router := apihttp.NewRouter(records, apihttp.NewHealthHandler(health), a.Logger, rc)

	if cfg.Server.Admin.Enabled {
		adminHandler := admin.NewHandler(admin.Deps{
			Manager:   a.Manager,
			Store:     health,
			Version:   version,
			Logger:    a.Logger.With().Str("component", "admin").Logger(),
			TokenHash: []byte(cfg.Server.Admin.TokenHash),
			Hasher:    h,
		})
		router.Mount("/admin", adminHandler.Router())
		if cfg.Server.Admin.TokenHash == "" {
			a.Logger.Warn().Msg("admin api enabled without a token")
		}
	}

	a.Router = router
	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

// applyConfig applies the reloadable part of a new configuration.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.Logger.Info().Str("level", cfg.Logging.Level).Msg("configuration applied")
}

// Reload re-reads the configuration file and applies its reloadable part.
func (a *App) Reload() error {
	if a.holder == nil {
		return fmt.Errorf("reload: application was not started from a config file")
	}
	return a.holder.Reload()
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server error.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	return a.Close()
}

// Close releases the config watcher and the store.
func (a *App) Close() error {
	if a.holder != nil {
		a.holder.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// SetupLogger builds the process logger from the logging configuration and
// sets the global level.
func SetupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
