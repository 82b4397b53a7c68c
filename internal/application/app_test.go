package application

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/tpcload/internal/config"
)

func TestServiceConfig(t *testing.T) {
	got := ServiceConfig(config.ImportConfig{
		MaxFileSize:      1 << 20,
		MaxConcurrent:    3,
		MaxWaitTime:      time.Second,
		BatchSize:        500,
		ProgressEvery:    100,
		RecentErrors:     5,
		ChunkSize:        4096,
		DefaultDelimiter: ",",
		ResultRetention:  time.Minute,
	})

	if got.MaxFileSize != 1<<20 || got.MaxConcurrent != 3 || got.MaxWait != time.Second || got.Retention != time.Minute {
		t.Errorf("limits = %+v", got)
	}
	d := got.Defaults
	if d.Delimiter != "," || d.BatchSize != 500 || d.ProgressEvery != 100 || d.RecentErrors != 5 || d.ChunkSize != 4096 {
		t.Errorf("defaults = %+v", d)
	}
}

func TestStoreConfigLowercasesDriver(t *testing.T) {
	got := StoreConfig(config.DatabaseConfig{Driver: "SQLite", URL: ":memory:", MaxConns: 2})
	if got.Driver != "sqlite" || got.DSN != ":memory:" || got.MaxConns != 2 {
		t.Errorf("StoreConfig = %+v", got)
	}
}

func testConfig(backend string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", URL: ":memory:", MaxConns: 1, Bootstrap: true},
		Import:   config.ImportConfig{MaxConcurrent: 1},
		Metrics:  config.MetricsConfig{Backend: backend, Namespace: "tpcload_test"},
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend     string
		wantHandler bool
		wantErr     bool
	}{
		{"none", false, false},
		{"prometheus", true, false},
		{"graphite", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			app, err := Open(context.Background(), testConfig(tt.backend))
			if tt.wantErr {
				if err == nil {
					app.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer app.Close()

			if (app.MetricsHandler != nil) != tt.wantHandler {
				t.Errorf("MetricsHandler set = %v", app.MetricsHandler != nil)
			}
			n, err := app.Service.TableCount(context.Background(), "region")
			if err != nil || n != 0 {
				t.Errorf("TableCount = %d, %v", n, err)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := testConfig("none")
	cfg.Database.Driver = "oracle"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
