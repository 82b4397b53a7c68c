// Package sqlite implements the sqlite store on modernc.org/sqlite, a pure Go
// driver. SQLite serialises writers, so the pool holds a single connection;
// this also keeps ":memory:" databases consistent across calls.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tpcload/internal/core"
	"github.com/JonMunkholm/tpcload/internal/store"

	_ "modernc.org/sqlite"
)

// Driver is the registered driver name.
const Driver = "sqlite"

// maxParams is SQLITE_MAX_VARIABLE_NUMBER for SQLite 3.32 and later.
const maxParams = 32766

// Dialect is the SQLite flavour of SQL. SQLite does not enforce declared
// lengths, so text columns carry a CHECK constraint instead.
var Dialect = store.Dialect{
	Quote:          store.QuoteDouble,
	Placeholder:    store.QuestionPlaceholder,
	ConflictClause: store.OnConflictDoNothing,
	ColumnType:     columnType,
	Truncate:       "DELETE FROM %s",
	MaxParams:      maxParams,
}

func columnType(q func(string) string, f core.FieldSpec) string {
	switch f.Type {
	case core.FieldInteger, core.FieldBigInt:
		return "INTEGER"
	case core.FieldDecimal:
		return "NUMERIC"
	case core.FieldDate:
		return "TEXT"
	default:
		return fmt.Sprintf("TEXT CHECK (length(%s) <= %d)", q(f.Name), f.Size)
	}
}

func init() {
	store.Register(Driver, Open, Dialect)
}

// Open opens the database at cfg.DSN, e.g. "tpch.db" or ":memory:".
func Open(ctx context.Context, cfg store.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", withPragmas(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return store.NewSQLStore(db, Driver, Dialect, nil), nil
}

// withPragmas adds a busy timeout unless the DSN already sets pragmas.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}
