package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/JonMunkholm/tpcload/internal/core"
)

var testDialect = Dialect{
	Quote:          QuoteDouble,
	Placeholder:    QuestionPlaceholder,
	ConflictClause: OnConflictDoNothing,
	ColumnType:     StandardColumnType,
	Truncate:       "DELETE FROM %s",
	MaxParams:      10,
}

func nationSchema() *core.TableSchema {
	return core.NewSchema(
		core.TableInfo{Key: "nation", PrimaryKey: []string{"n_nationkey"}},
		core.FieldSpec{Name: "n_nationkey", Type: core.FieldInteger},
		core.FieldSpec{Name: "n_name", Type: core.FieldChar, Size: 25},
		core.FieldSpec{Name: "n_regionkey", Type: core.FieldInteger},
		core.FieldSpec{Name: "n_comment", Type: core.FieldVarchar, Size: 152},
	)
}

func TestRegisterAndOpen(t *testing.T) {
	errBoom := errors.New("boom")
	Register("fake", func(ctx context.Context, cfg Config) (Store, error) {
		return nil, errBoom
	}, testDialect)

	if !slices.Contains(Drivers(), "fake") {
		t.Fatalf("Drivers() = %v, missing fake", Drivers())
	}
	if _, err := Open(context.Background(), Config{Driver: "fake"}); !errors.Is(err, errBoom) {
		t.Errorf("Open(fake) = %v, want wrapped boom", err)
	}
	if _, err := Open(context.Background(), Config{Driver: "oracle"}); err == nil || !strings.Contains(err.Error(), "unsupported store driver") {
		t.Errorf("Open(oracle) = %v", err)
	}
}

func TestDialect_InsertSQL(t *testing.T) {
	got := testDialect.InsertSQL(nationSchema(), 2)
	want := `INSERT INTO "nation" ("n_nationkey", "n_name", "n_regionkey", "n_comment") VALUES (?, ?, ?, ?), (?, ?, ?, ?) ON CONFLICT ("n_nationkey") DO NOTHING`
	if got != want {
		t.Errorf("InsertSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestDialect_RowsPerStatement(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{4, 2},
		{10, 1},
		{11, 1},
		{0, 1},
	}
	for _, tt := range tests {
		if got := testDialect.RowsPerStatement(tt.width); got != tt.want {
			t.Errorf("RowsPerStatement(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestDialect_DDL(t *testing.T) {
	Register("ddltest", nil, testDialect)
	stmts, err := DDL("ddltest", []*core.TableSchema{nationSchema()})
	if err != nil {
		t.Fatalf("DDL: %v", err)
	}
	want := `CREATE TABLE IF NOT EXISTS "nation" (
    "n_nationkey" INTEGER NOT NULL,
    "n_name" CHAR(25) NOT NULL,
    "n_regionkey" INTEGER NOT NULL,
    "n_comment" VARCHAR(152) NOT NULL,
    PRIMARY KEY ("n_nationkey")
)`
	if len(stmts) != 1 || stmts[0] != want {
		t.Errorf("DDL =\n%s\nwant\n%s", stmts, want)
	}
}

func TestArgs(t *testing.T) {
	args := Args([][]string{{"1", "a"}, {"2", "b"}})
	if len(args) != 4 || args[2] != "2" {
		t.Errorf("Args = %v", args)
	}
	if Args(nil) != nil {
		t.Error("Args(nil) should be nil")
	}
}

func TestQuote(t *testing.T) {
	if got := QuoteDouble(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteDouble = %s", got)
	}
	if got := QuoteBacktick("we`ird"); got != "`we``ird`" {
		t.Errorf("QuoteBacktick = %s", got)
	}
}
