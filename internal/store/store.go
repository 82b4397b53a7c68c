// Package store holds the destination database contracts and the backend
// factory. Backends register themselves at init time; import
// internal/store/all to enable every built-in driver.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/tpcload/internal/core"
)

// Store is a destination database for imports.
type Store interface {
	core.Store

	// Exec runs a statement without arguments, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Driver returns the registered driver name.
	Driver() string
}

// Config holds the settings every backend understands.
type Config struct {
	Driver          string
	DSN             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

type backend struct {
	open    Factory
	dialect Dialect
}

var (
	mu       sync.RWMutex
	backends = map[string]backend{}
)

// Register makes a driver available to Open. It is called from backend
// packages' init functions and replaces any earlier registration.
func Register(driver string, open Factory, dialect Dialect) {
	mu.Lock()
	defer mu.Unlock()
	backends[driver] = backend{open: open, dialect: dialect}
}

// Open connects to the configured driver and verifies the connection.
func Open(ctx context.Context, cfg Config) (Store, error) {
	b, err := lookup(cfg.Driver)
	if err != nil {
		return nil, err
	}
	s, err := b.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return s, nil
}

// DialectFor returns the SQL dialect of a registered driver.
func DialectFor(driver string) (Dialect, error) {
	b, err := lookup(driver)
	if err != nil {
		return Dialect{}, err
	}
	return b.dialect, nil
}

// Drivers lists registered driver names, sorted.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lookup(driver string) (backend, error) {
	mu.RLock()
	b, ok := backends[driver]
	mu.RUnlock()
	if !ok {
		return backend{}, fmt.Errorf("unsupported store driver %q (registered: %v)", driver, Drivers())
	}
	return b, nil
}
