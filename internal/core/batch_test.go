package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func addRows(t *testing.T, b *Batcher, lines []string, firstLine int) []BatchResult {
	t.Helper()
	var results []BatchResult
	schema := regionSchema()
	for i, line := range lines {
		values, verr := ValidateRecord(schema, line, "|")
		if verr != nil {
			t.Fatalf("fixture line %d invalid: %v", i, verr)
		}
		if res, flushed := b.Add(context.Background(), firstLine+i, line, values); flushed {
			results = append(results, res)
		}
	}
	return results
}

func TestBatcher_FlushesAtSize(t *testing.T) {
	ins := &fakeInserter{}
	b := NewBatcher(ins, regionSchema(), 4)

	results := addRows(t, b, regionLines(10), 1)
	if len(results) != 2 {
		t.Fatalf("got %d flushes, want 2", len(results))
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}

	res := b.Flush(context.Background())
	if res.Rows != 2 || res.Imported != 2 || res.Fallback {
		t.Errorf("final flush = %+v", res)
	}
	if ins.count() != 10 || ins.bulks != 3 || ins.singles != 0 {
		t.Errorf("rows=%d bulks=%d singles=%d", ins.count(), ins.bulks, ins.singles)
	}

	if res := b.Flush(context.Background()); res.Rows != 0 {
		t.Errorf("empty flush = %+v", res)
	}
}

func TestBatcher_FallbackIsolatesBadRow(t *testing.T) {
	ins := &fakeInserter{failKeys: map[string]bool{"500": true}}
	b := NewBatcher(ins, regionSchema(), 1000)

	// Physical line numbers start at 3, as if two header lines were skipped.
	results := addRows(t, b, regionLines(1000), 3)
	if len(results) != 1 {
		t.Fatalf("got %d flushes, want 1", len(results))
	}
	res := results[0]

	if !res.Fallback || res.BulkError == nil {
		t.Fatalf("expected fallback, got %+v", res)
	}
	if res.Imported != 999 || res.Written != 999 {
		t.Errorf("Imported=%d Written=%d, want 999", res.Imported, res.Written)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
	e := res.Errors[0]
	if e.Line != 503 {
		t.Errorf("error line = %d, want 503", e.Line)
	}
	if !strings.HasPrefix(e.Reason, "insert failed: ") {
		t.Errorf("reason = %q", e.Reason)
	}
	if !strings.HasPrefix(e.Data, "500|REGION500") {
		t.Errorf("data = %q", e.Data)
	}
	if ins.singles != 1000 {
		t.Errorf("replayed %d rows, want 1000", ins.singles)
	}
}

func TestBatcher_Duplicates(t *testing.T) {
	ins := &fakeInserter{dupKeys: map[string]bool{"1": true, "2": true}}
	b := NewBatcher(ins, regionSchema(), 10)
	addRows(t, b, regionLines(5), 1)

	res := b.Flush(context.Background())
	if res.Imported != 5 || res.Written != 3 {
		t.Errorf("Imported=%d Written=%d, want 5 and 3", res.Imported, res.Written)
	}
}

func TestBatcher_CancelledDuringFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ins := &fakeInserter{failBulk: errors.New("connection reset")}
	b := NewBatcher(ins, regionSchema(), 10)

	schema := regionSchema()
	for i, line := range regionLines(5) {
		values, _ := ValidateRecord(schema, line, "|")
		b.Add(ctx, i+1, line, values)
	}
	cancel()

	res := b.Flush(ctx)
	if !res.Cancelled {
		t.Fatalf("expected Cancelled, got %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("cancelled rows reported as failures: %+v", res.Errors)
	}
	if b.Len() != 0 {
		t.Errorf("batch not cleared after flush: %d", b.Len())
	}
}
