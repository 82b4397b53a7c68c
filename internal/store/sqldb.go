package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/tpcload/internal/core"
)

// SQLStore is a Store over database/sql, shared by the sqlite and mysql
// backends.
type SQLStore struct {
	db      *sql.DB
	driver  string
	dialect Dialect

	// describe adds backend detail to driver errors, may be nil.
	describe func(error) error
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db. describe, if non-nil, rewrites driver errors before
// they are wrapped with the operation.
func NewSQLStore(db *sql.DB, driver string, d Dialect, describe func(error) error) *SQLStore {
	return &SQLStore{db: db, driver: driver, dialect: d, describe: describe}
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Driver implements Store.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) wrap(op string, err error) error {
	if s.describe != nil {
		err = s.describe(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// InsertBatch writes rows with multi-row inserts that skip duplicate keys.
// Rows that need more than one statement share a transaction, so the batch
// is all or nothing.
func (s *SQLStore) InsertBatch(ctx context.Context, schema *core.TableSchema, rows [][]string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	per := s.dialect.RowsPerStatement(len(schema.Fields()))
	op := "insert " + schema.Name()

	if len(rows) <= per {
		res, err := s.db.ExecContext(ctx, s.dialect.InsertSQL(schema, len(rows)), Args(rows)...)
		if err != nil {
			return 0, s.wrap(op, err)
		}
		n, _ := res.RowsAffected()
		return n, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.wrap("begin tx", err)
	}
	defer tx.Rollback()

	var written int64
	for start := 0; start < len(rows); start += per {
		chunk := rows[start:min(start+per, len(rows))]
		res, err := tx.ExecContext(ctx, s.dialect.InsertSQL(schema, len(chunk)), Args(chunk)...)
		if err != nil {
			return 0, s.wrap(op, err)
		}
		n, _ := res.RowsAffected()
		written += n
	}
	if err := tx.Commit(); err != nil {
		return 0, s.wrap("commit", err)
	}
	return written, nil
}

// InsertRow writes a single row, skipping it if its key exists.
func (s *SQLStore) InsertRow(ctx context.Context, schema *core.TableSchema, row []string) (int64, error) {
	return s.InsertBatch(ctx, schema, [][]string{row})
}

// Count implements core.Store.
func (s *SQLStore) Count(ctx context.Context, schema *core.TableSchema) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.dialect.CountSQL(schema)).Scan(&n); err != nil {
		return 0, s.wrap("count "+schema.Name(), err)
	}
	return n, nil
}

// Truncate implements core.Store.
func (s *SQLStore) Truncate(ctx context.Context, schema *core.TableSchema) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.TruncateSQL(schema)); err != nil {
		return s.wrap("truncate "+schema.Name(), err)
	}
	return nil
}

// Exec implements Store.
func (s *SQLStore) Exec(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return s.wrap("exec", err)
	}
	return nil
}

// Ping implements core.Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements core.Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
