// Package application wires configuration into a running importer: the
// metrics backend, the destination store and the import service. Both the
// HTTP server and the tpcimport CLI start from Open.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tpcload/internal/config"
	"github.com/JonMunkholm/tpcload/internal/core"
	_ "github.com/JonMunkholm/tpcload/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/tpcload/internal/metrics"
	"github.com/JonMunkholm/tpcload/internal/metrics/datadog"
	"github.com/JonMunkholm/tpcload/internal/metrics/prom"
	"github.com/JonMunkholm/tpcload/internal/store"
	_ "github.com/JonMunkholm/tpcload/internal/store/all" // Register all drivers
)

// App holds the long-lived components built from a Config.
type App struct {
	Config  *config.Config
	Store   store.Store
	Service *core.Service

	// MetricsHandler serves /metrics when the prometheus backend is active.
	MetricsHandler http.Handler

	closers []func() error
}

// Open builds an App. On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if err := app.setupMetrics(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, StoreConfig(cfg.Database))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = st
	app.closers = append(app.closers, st.Close)
	slog.Info("connected to database", "driver", st.Driver())

	if cfg.Database.Bootstrap {
		if err := store.Bootstrap(ctx, st, core.All()); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Service = core.NewService(st, ServiceConfig(cfg.Import))
	slog.Info("tables registered", "count", core.TableCount(), "tables", strings.Join(core.Names(), ","))
	return app, nil
}

// StoreConfig maps the database section onto the store factory config.
func StoreConfig(c config.DatabaseConfig) store.Config {
	return store.Config{
		Driver:          strings.ToLower(c.Driver),
		DSN:             c.URL,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

// ServiceConfig maps the import section onto the service config.
func ServiceConfig(c config.ImportConfig) core.ServiceConfig {
	return core.ServiceConfig{
		MaxFileSize:   c.MaxFileSize,
		MaxConcurrent: c.MaxConcurrent,
		MaxWait:       c.MaxWaitTime,
		Retention:     c.ResultRetention,
		Defaults: core.JobOptions{
			Delimiter:     c.DefaultDelimiter,
			BatchSize:     c.BatchSize,
			ProgressEvery: c.ProgressEvery,
			RecentErrors:  c.RecentErrors,
			ChunkSize:     c.ChunkSize,
		},
	}
}

func (a *App) setupMetrics() error {
	mc := a.Config.Metrics
	switch strings.ToLower(mc.Backend) {
	case "prometheus":
		b, err := prom.NewBackend(mc.Namespace)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		a.MetricsHandler = b.Handler()
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       mc.StatsdAddr,
			Namespace:  mc.Namespace,
			GlobalTags: mc.Tags,
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		a.closers = append(a.closers, b.Close)
	case "", "none":
		return nil
	default:
		return fmt.Errorf("metrics: unknown backend %q", mc.Backend)
	}
	slog.Info("metrics enabled", "backend", mc.Backend, "namespace", mc.Namespace)
	return nil
}

// Close flushes metrics and releases the store, in reverse opening order.
func (a *App) Close() error {
	errs := []error{metrics.Flush()}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
