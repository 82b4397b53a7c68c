// Package postgres implements the postgres store on pgx v5. Batches are
// written with multi-row INSERT ... ON CONFLICT (pk) DO NOTHING, so a
// re-import skips rows that already exist.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tpcload/internal/core"
	"github.com/JonMunkholm/tpcload/internal/store"
)

// Driver is the registered driver name.
const Driver = "postgres"

// maxParams is the wire protocol limit on bind parameters.
const maxParams = 65535

// Dialect is the PostgreSQL flavour of SQL.
var Dialect = store.Dialect{
	Quote:          store.QuoteDouble,
	Placeholder:    store.DollarPlaceholder,
	ConflictClause: store.OnConflictDoNothing,
	ColumnType:     store.StandardColumnType,
	Truncate:       "TRUNCATE TABLE %s",
	MaxParams:      maxParams,
}

func init() {
	store.Register(Driver, Open, Dialect)
}

// Store is a pgxpool-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open parses cfg.DSN, applies the pool settings and pings the server.
func Open(ctx context.Context, cfg store.Config) (store.Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Driver implements store.Store.
func (s *Store) Driver() string { return Driver }

// InsertBatch writes rows in as few statements as the parameter limit
// allows, inside one transaction when more than one is needed.
func (s *Store) InsertBatch(ctx context.Context, schema *core.TableSchema, rows [][]string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	per := Dialect.RowsPerStatement(len(schema.Fields()))

	if len(rows) <= per {
		tag, err := s.pool.Exec(ctx, Dialect.InsertSQL(schema, len(rows)), store.Args(rows)...)
		if err != nil {
			return 0, describe("insert "+schema.Name(), err)
		}
		return tag.RowsAffected(), nil
	}

	var written int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(rows); start += per {
			chunk := rows[start:min(start+per, len(rows))]
			tag, err := tx.Exec(ctx, Dialect.InsertSQL(schema, len(chunk)), store.Args(chunk)...)
			if err != nil {
				return err
			}
			written += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, describe("insert "+schema.Name(), err)
	}
	return written, nil
}

// InsertRow writes one row, skipping it if its key exists.
func (s *Store) InsertRow(ctx context.Context, schema *core.TableSchema, row []string) (int64, error) {
	tag, err := s.pool.Exec(ctx, Dialect.InsertSQL(schema, 1), store.Args([][]string{row})...)
	if err != nil {
		return 0, describe("insert "+schema.Name(), err)
	}
	return tag.RowsAffected(), nil
}

// Count implements core.Store.
func (s *Store) Count(ctx context.Context, schema *core.TableSchema) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, Dialect.CountSQL(schema)).Scan(&n); err != nil {
		return 0, describe("count "+schema.Name(), err)
	}
	return n, nil
}

// Truncate implements core.Store.
func (s *Store) Truncate(ctx context.Context, schema *core.TableSchema) error {
	if _, err := s.pool.Exec(ctx, Dialect.TruncateSQL(schema)); err != nil {
		return describe("truncate "+schema.Name(), err)
	}
	return nil
}

// Exec implements store.Store.
func (s *Store) Exec(ctx context.Context, sql string) error {
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return describe("exec", err)
	}
	return nil
}

// Ping implements core.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements core.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// describe wraps err with op, adding the server's detail line when err is
// a PostgreSQL error that carries one.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s: %w: %s", op, err, pgErr.Detail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
