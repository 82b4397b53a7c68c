package core

// batch.go accumulates validated rows and writes them to the store.
//
// A flush first tries one multi-row insert. If that fails for any reason the
// batch is replayed row by row so that a single bad row only costs itself:
// the rows that still fail get an ImportError carrying their own file line
// number, every other row counts as imported.

import (
	"context"
	"time"

	"github.com/JonMunkholm/tpcload/internal/metrics"
)

// DefaultBatchSize is the number of rows per bulk insert.
const DefaultBatchSize = 1000

// pendingRow is a validated row waiting for a flush.
type pendingRow struct {
	line   int
	raw    string
	values []string
}

// BatchResult describes one flush.
type BatchResult struct {
	Rows      int           // Rows in the batch
	Imported  int           // Rows the store accepted, duplicates included
	Written   int           // Rows the store actually wrote
	Fallback  bool          // Bulk insert failed and rows were replayed
	BulkError error         // Why the bulk insert failed
	Errors    []ImportError // One entry per row that failed on its own
	Cancelled bool          // ctx ended before every row was accounted for
	Duration  time.Duration
}

// Batcher is the only component that writes to the store. Not safe for
// concurrent use.
type Batcher struct {
	ins    Inserter
	schema *TableSchema
	size   int
	rows   []pendingRow
}

// NewBatcher creates a batcher that flushes every size rows.
func NewBatcher(ins Inserter, schema *TableSchema, size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{
		ins:    ins,
		schema: schema,
		size:   size,
		rows:   make([]pendingRow, 0, size),
	}
}

// Add buffers a validated row. When the batch reaches its size it is
// flushed and the result is returned with flushed set.
func (b *Batcher) Add(ctx context.Context, line int, raw string, values []string) (res BatchResult, flushed bool) {
	b.rows = append(b.rows, pendingRow{line: line, raw: raw, values: values})
	if len(b.rows) < b.size {
		return BatchResult{}, false
	}
	return b.Flush(ctx), true
}

// Len returns the number of buffered rows.
func (b *Batcher) Len() int {
	return len(b.rows)
}

// Flush writes the buffered rows and clears the buffer. An empty batch is a
// no-op.
func (b *Batcher) Flush(ctx context.Context) BatchResult {
	if len(b.rows) == 0 {
		return BatchResult{}
	}
	defer func() { b.rows = b.rows[:0] }()

	start := time.Now()
	table := b.schema.Name()
	res := BatchResult{Rows: len(b.rows)}

	values := make([][]string, len(b.rows))
	for i, r := range b.rows {
		values[i] = r.values
	}

	written, err := b.ins.InsertBatch(ctx, b.schema, values)
	if err == nil {
		res.Imported = len(b.rows)
		res.Written = int(written)
		res.Duration = time.Since(start)
		metrics.RecordBatch(table, "bulk", res.Duration)
		return res
	}

	res.Fallback = true
	res.BulkError = err
	if ctx.Err() != nil {
		res.Cancelled = true
		res.Duration = time.Since(start)
		return res
	}

	for _, r := range b.rows {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		n, err := b.ins.InsertRow(ctx, b.schema, r.values)
		if err != nil {
			if ctx.Err() != nil {
				res.Cancelled = true
				break
			}
			res.Errors = append(res.Errors, ImportError{
				Line:   r.line,
				Reason: "insert failed: " + err.Error(),
				Data:   TruncateData(r.raw),
			})
			continue
		}
		res.Imported++
		res.Written += int(n)
	}

	res.Duration = time.Since(start)
	metrics.RecordBatch(table, "fallback", res.Duration)
	return res
}
