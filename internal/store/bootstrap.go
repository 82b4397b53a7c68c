package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/tpcload/internal/core"
)

// DDL returns the CREATE TABLE statements for schemas in driver's dialect.
func DDL(driver string, schemas []*core.TableSchema) ([]string, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(schemas))
	for i, s := range schemas {
		out[i] = d.CreateTableSQL(s)
	}
	return out, nil
}

// Bootstrap creates every missing table in schemas.
func Bootstrap(ctx context.Context, s Store, schemas []*core.TableSchema) error {
	stmts, err := DDL(s.Driver(), schemas)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", schemas[i].Name(), err)
		}
	}
	slog.Info("schema bootstrapped", "driver", s.Driver(), "tables", len(stmts))
	return nil
}
