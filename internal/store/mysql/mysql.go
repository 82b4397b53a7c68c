// Package mysql implements the mysql store on go-sql-driver/mysql. Duplicate
// keys are skipped with ON DUPLICATE KEY UPDATE pk = pk, which MySQL reports
// as zero affected rows.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/JonMunkholm/tpcload/internal/store"
)

// Driver is the registered driver name.
const Driver = "mysql"

// maxParams is the prepared statement placeholder limit.
const maxParams = 65535

// Dialect is the MySQL flavour of SQL.
var Dialect = store.Dialect{
	Quote:          store.QuoteBacktick,
	Placeholder:    store.QuestionPlaceholder,
	ConflictClause: onDuplicateKeyNoop,
	ColumnType:     store.StandardColumnType,
	Truncate:       "TRUNCATE TABLE %s",
	MaxParams:      maxParams,
}

func init() {
	store.Register(Driver, Open, Dialect)
}

func onDuplicateKeyNoop(q func(string) string, pk []string) string {
	if len(pk) == 0 {
		return ""
	}
	c := q(pk[0])
	return "ON DUPLICATE KEY UPDATE " + c + " = " + c
}

// Open connects using a go-sql-driver DSN such as
// "user:pass@tcp(localhost:3306)/tpch". Strict mode is forced so over-long
// values fail instead of being truncated.
func Open(ctx context.Context, cfg store.Config) (store.Store, error) {
	mcfg, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	return store.NewSQLStore(db, Driver, Dialect, describe), nil
}

// ParseDSN parses dsn and applies the settings the importer relies on.
func ParseDSN(dsn string) (*mysql.Config, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	mcfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("mysql: parse DSN: %w", err)
	}
	if mcfg.Params == nil {
		mcfg.Params = map[string]string{}
	}
	if _, ok := mcfg.Params["sql_mode"]; !ok {
		mcfg.Params["sql_mode"] = "'STRICT_ALL_TABLES'"
	}
	mcfg.ParseTime = false
	return mcfg, nil
}

// describe adds the server error number to MySQL errors.
func describe(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Errorf("%w (MySQL %d)", err, myErr.Number)
	}
	return err
}
