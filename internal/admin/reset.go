// Package admin provides administrative operations on the TPC-H tables.
package admin

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// ResetTimeout is the maximum duration for a full reset.
const ResetTimeout = 5 * time.Minute

// Truncater empties one table. *core.Service satisfies it.
type Truncater interface {
	TruncateTable(ctx context.Context, table string) error
}

// ResetAll truncates every named table, children before parents, so a
// benchmark run can reload from scratch. It stops at the first failure.
// This is a destructive operation.
func ResetAll(ctx context.Context, t Truncater, tables []string) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	ordered := LoadOrder(tables)
	for i := len(ordered) - 1; i >= 0; i-- {
		if err := t.TruncateTable(ctx, ordered[i]); err != nil {
			return fmt.Errorf("reset %s: %w", ordered[i], err)
		}
	}
	slog.Warn("tables reset", "count", len(ordered))
	return nil
}

// loadRank is the TPC-H parent-first order for loading.
var loadRank = map[string]int{
	"region":   0,
	"nation":   1,
	"part":     2,
	"supplier": 3,
	"partsupp": 4,
	"customer": 5,
	"orders":   6,
	"lineitem": 7,
}

// LoadOrder sorts table names parents first. Unknown tables keep their
// relative order after the known ones.
func LoadOrder(tables []string) []string {
	out := slices.Clone(tables)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(rank(a), rank(b))
	})
	return out
}

func rank(table string) int {
	if r, ok := loadRank[table]; ok {
		return r
	}
	return len(loadRank)
}
