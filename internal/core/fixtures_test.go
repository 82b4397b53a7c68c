package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

var (
	regionInfo = TableInfo{Key: "region", Group: "TPC-H", Label: "Region", PrimaryKey: []string{"r_regionkey"}}

	regionFields = []FieldSpec{
		{Name: "r_regionkey", Type: FieldInteger, Validate: NonNegativeInt("region key")},
		{Name: "r_name", Type: FieldChar, Size: 25, Validate: NonBlankMaxLength("name", 25)},
		{Name: "r_comment", Type: FieldVarchar, Size: 152},
	}
)

// The tables package depends on core, so core tests register their own
// copy of region.
func init() {
	Register(regionInfo, regionFields...)
}

func regionSchema() *TableSchema {
	return NewSchema(regionInfo, regionFields...)
}

// fakeInserter records inserts. Bulk inserts fail while failBulk is set, and
// single-row inserts fail for rows whose first value is in failKeys.
type fakeInserter struct {
	mu       sync.Mutex
	failBulk error
	failKeys map[string]bool
	dupKeys  map[string]bool
	rowErr   error
	rows     [][]string
	bulks    int
	singles  int

	// onBulk runs before each bulk insert, for cancelling mid-run.
	onBulk func()
	// onSingle runs before each single-row insert.
	onSingle func()
}

var errFakeBulk = errors.New("batch rejected")

func (f *fakeInserter) InsertBatch(ctx context.Context, _ *TableSchema, rows [][]string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onBulk != nil {
		f.onBulk()
	}
	f.bulks++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failBulk != nil {
		return 0, f.failBulk
	}
	for _, r := range rows {
		if f.failKeys[r[0]] {
			return 0, errFakeBulk
		}
	}
	var written int64
	for _, r := range rows {
		if f.dupKeys[r[0]] {
			continue
		}
		f.rows = append(f.rows, r)
		written++
	}
	return written, nil
}

func (f *fakeInserter) InsertRow(ctx context.Context, _ *TableSchema, row []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles++
	if f.onSingle != nil {
		f.onSingle()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failKeys[row[0]] {
		err := f.rowErr
		if err == nil {
			err = errors.New(`violates check constraint "region_comment_len"`)
		}
		return 0, err
	}
	if f.dupKeys[row[0]] {
		return 0, nil
	}
	f.rows = append(f.rows, row)
	return 1, nil
}

// fakeStore adds the table operations to fakeInserter.
type fakeStore struct {
	fakeInserter
	truncated []string
	pingErr   error
}

func (f *fakeStore) Count(context.Context, *TableSchema) (int64, error) {
	return int64(f.count()), nil
}

func (f *fakeStore) Truncate(_ context.Context, schema *TableSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = nil
	f.truncated = append(f.truncated, schema.Name())
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// eventRecorder is an EventSink that keeps every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) ofType(t EventType) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// regionLines builds n valid region rows keyed 0..n-1.
func regionLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = strconv.Itoa(i) + "|REGION" + strconv.Itoa(i) + "|comment " + strconv.Itoa(i)
	}
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}
