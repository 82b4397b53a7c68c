package store

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tpcload/internal/core"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// Quote quotes an identifier.
	Quote func(string) string

	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// ConflictClause is appended to inserts so duplicate primary keys are
	// skipped rather than rejected.
	ConflictClause func(q func(string) string, pk []string) string

	// ColumnType returns the column type for a field, including any
	// length check the engine does not enforce on its own.
	ColumnType func(q func(string) string, f core.FieldSpec) string

	// Truncate empties a table.
	Truncate string

	// MaxParams bounds the bind parameters of a single statement.
	MaxParams int
}

// RowsPerStatement returns how many rows of width columns fit in one insert.
func (d Dialect) RowsPerStatement(width int) int {
	if width <= 0 || d.MaxParams <= 0 {
		return 1
	}
	return max(1, d.MaxParams/width)
}

// InsertSQL builds a multi-row insert for rows rows of schema.
func (d Dialect) InsertSQL(schema *core.TableSchema, rows int) string {
	cols := schema.Fields()

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Quote(schema.Name()))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(c))
	}
	b.WriteString(") VALUES ")

	n := 0
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(d.Placeholder(n))
		}
		b.WriteByte(')')
	}

	if clause := d.ConflictClause(d.Quote, schema.Info.PrimaryKey); clause != "" {
		b.WriteByte(' ')
		b.WriteString(clause)
	}
	return b.String()
}

// CountSQL counts the rows of schema.
func (d Dialect) CountSQL(schema *core.TableSchema) string {
	return "SELECT COUNT(*) FROM " + d.Quote(schema.Name())
}

// TruncateSQL empties schema.
func (d Dialect) TruncateSQL(schema *core.TableSchema) string {
	return fmt.Sprintf(d.Truncate, d.Quote(schema.Name()))
}

// CreateTableSQL returns an idempotent CREATE TABLE for schema.
func (d Dialect) CreateTableSQL(schema *core.TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.Quote(schema.Name()))
	for _, f := range schema.FieldSpecs {
		fmt.Fprintf(&b, "    %s %s NOT NULL,\n", d.Quote(f.Name), d.ColumnType(d.Quote, f))
	}
	pk := make([]string, len(schema.Info.PrimaryKey))
	for i, c := range schema.Info.PrimaryKey {
		pk[i] = d.Quote(c)
	}
	fmt.Fprintf(&b, "    PRIMARY KEY (%s)\n)", strings.Join(pk, ", "))
	return b.String()
}

// Args flattens rows into bind arguments.
func Args(rows [][]string) []any {
	if len(rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		for _, v := range row {
			args = append(args, v)
		}
	}
	return args
}

// QuoteDouble quotes an identifier with double quotes (ANSI).
func QuoteDouble(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteBacktick quotes an identifier with backticks (MySQL).
func QuoteBacktick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// QuestionPlaceholder is the ? bind style.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the $n bind style.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// OnConflictDoNothing skips rows whose primary key already exists.
func OnConflictDoNothing(q func(string) string, pk []string) string {
	if len(pk) == 0 {
		return "ON CONFLICT DO NOTHING"
	}
	cols := make([]string, len(pk))
	for i, c := range pk {
		cols[i] = q(c)
	}
	return "ON CONFLICT (" + strings.Join(cols, ", ") + ") DO NOTHING"
}

// StandardColumnType maps field types to ANSI column types.
func StandardColumnType(_ func(string) string, f core.FieldSpec) string {
	switch f.Type {
	case core.FieldInteger:
		return "INTEGER"
	case core.FieldBigInt:
		return "BIGINT"
	case core.FieldDecimal:
		return "DECIMAL(15,2)"
	case core.FieldDate:
		return "DATE"
	case core.FieldChar:
		return fmt.Sprintf("CHAR(%d)", f.Size)
	default:
		return fmt.Sprintf("VARCHAR(%d)", f.Size)
	}
}
