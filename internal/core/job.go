package core

// job.go drives one import pass:
//
//	idle -> reading -> (validating <-> batching) -> draining -> completed
//	                \-> failed (transport error)
//	                \-> aborted (context cancelled)
//
// A Job runs on a single goroutine which owns the reassembler, the batch
// and the counters, so none of them need locking. Only the state is shared,
// for status queries.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/JonMunkholm/tpcload/internal/metrics"
)

// DefaultChunkSize is the read size used when pulling from the source.
const DefaultChunkSize = 64 * 1024

// JobOptions configure a single import.
type JobOptions struct {
	FileName      string
	Delimiter     string
	BatchSize     int
	ProgressEvery int
	RecentErrors  int
	ChunkSize     int

	// TrimTrailingDelimiter drops one delimiter at the end of each line, as
	// written by dbgen into .tbl files.
	TrimTrailingDelimiter bool
}

func (o *JobOptions) applyDefaults() {
	if o.Delimiter == "" {
		o.Delimiter = "|"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.RecentErrors <= 0 {
		o.RecentErrors = DefaultRecentErrors
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
}

// ValidateDelimiter rejects delimiters that cannot split a line.
func ValidateDelimiter(d string) error {
	if d == "" || strings.ContainsAny(d, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, d)
	}
	return nil
}

// Job is one import of one source into one table.
type Job struct {
	ID     string
	schema *TableSchema
	ins    Inserter
	opts   JobOptions
	logger *slog.Logger

	mu    sync.Mutex
	state JobState

	lines    LineReassembler
	batcher  *Batcher
	progress *ProgressReporter
	lineNo   int
	invalid  int
	src      *Source
	sink     EventSink
}

// NewJob prepares a job. Nothing runs until Run.
func NewJob(id string, schema *TableSchema, ins Inserter, opts JobOptions) *Job {
	opts.applyDefaults()
	return &Job{
		ID:       id,
		schema:   schema,
		ins:      ins,
		opts:     opts,
		logger:   slog.Default().With("job_id", id, "table", schema.Name()),
		state:    StateIdle,
		batcher:  NewBatcher(ins, schema, opts.BatchSize),
		progress: NewProgressReporter(opts.ProgressEvery, opts.RecentErrors),
	}
}

// WithLogger replaces the job logger.
func (j *Job) WithLogger(l *slog.Logger) *Job {
	if l != nil {
		j.logger = l
	}
	return j
}

// State returns the job's current state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Failures returns every failed row. Only valid once Run has returned.
func (j *Job) Failures() []ImportError {
	return j.progress.Result().Errors
}

func (j *Job) setState(s JobState) {
	j.mu.Lock()
	prev := j.state
	j.state = s
	j.mu.Unlock()
	if prev != s {
		j.logger.Debug("import state", "from", prev, "to", s)
	}
}

// errStop unwinds the read loop after a cancelled flush.
var errStop = errors.New("stop")

// Run performs the pass, emitting events to sink. It returns the terminal
// result on completion, ErrAborted (wrapping the cause) on cancellation, or
// the transport error. Exactly one terminal event is emitted in every case.
func (j *Job) Run(ctx context.Context, src *Source, sink EventSink) (result *ImportResult, err error) {
	if sink == nil {
		sink = Discard
	}
	j.src = src
	j.sink = sink
	start := time.Now()
	table := j.schema.Name()

	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("import panicked", "panic", r)
			err = fmt.Errorf("internal error: %v", r)
			result = nil
			j.fail(err)
		}
		snap := j.progress.Snapshot()
		metrics.RecordRows(table, "processed", snap.Processed)
		metrics.RecordRows(table, "invalid", j.invalid)
		metrics.RecordBytes(table, src.BytesRead())
		metrics.RecordJob(table, string(j.State()), time.Since(start))
	}()

	sink.Emit(Event{Type: EventFileInfo, Data: FileInfo{
		JobID:     j.ID,
		FileName:  j.opts.FileName,
		FileSize:  src.Size,
		Table:     table,
		Delimiter: j.opts.Delimiter,
	}})

	buf := make([]byte, j.opts.ChunkSize)
	for {
		if ctx.Err() != nil {
			return nil, j.abort(ctx)
		}

		j.setState(StateReading)
		n, rerr := src.Read(buf)

		if n > 0 {
			j.setState(StateValidating)
			for _, line := range j.lines.Feed(buf[:n]) {
				if err := j.handleLine(ctx, line); err != nil {
					return nil, j.abort(ctx)
				}
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return nil, j.abort(ctx)
			}
			terr := fmt.Errorf("read source: %w", rerr)
			j.fail(terr)
			return nil, terr
		}
	}

	j.setState(StateDraining)
	if tail, ok := j.lines.Flush(); ok {
		if err := j.handleLine(ctx, tail); err != nil {
			return nil, j.abort(ctx)
		}
	}
	if err := j.flush(ctx); err != nil {
		return nil, j.abort(ctx)
	}

	res := j.progress.Result()
	res.DurationMs = time.Since(start).Milliseconds()
	res.BytesRead = src.BytesRead()
	res.FileHash = src.Hash()

	j.setState(StateCompleted)
	j.logger.Info("import complete",
		"total", res.TotalRows,
		"imported", res.ImportedRows,
		"failed", res.FailedRows,
		"duplicates", res.DuplicateRows,
		"duration_ms", res.DurationMs,
	)
	sink.Emit(Event{Type: EventComplete, Data: res})
	return &res, nil
}

// handleLine validates one physical line and routes it.
func (j *Job) handleLine(ctx context.Context, line string) error {
	j.lineNo++
	line = j.trimLine(line)
	if line == "" {
		return nil
	}
	report := j.progress.Processed()

	values, verr := ValidateRecord(j.schema, line, j.opts.Delimiter)
	if verr != nil {
		j.progress.Record(OutcomeFailed, 1, &ImportError{
			Line:   j.lineNo,
			Reason: verr.Reason,
			Data:   TruncateData(line),
		})
		j.invalid++
	} else {
		full := j.batcher.Len()+1 >= j.opts.BatchSize
		if full {
			j.setState(StateBatching)
		}
		res, flushed := j.batcher.Add(ctx, j.lineNo, line, values)
		if flushed {
			if err := j.apply(res); err != nil {
				return err
			}
		}
		if full {
			j.setState(StateValidating)
		}
	}

	if report {
		j.emitProgress()
	}
	return nil
}

// trimLine strips surrounding whitespace (CR included) that is not part of
// the delimiter, then the optional trailing delimiter.
func (j *Job) trimLine(line string) string {
	d := j.opts.Delimiter
	line = strings.TrimFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) && !strings.ContainsRune(d, r)
	})
	if j.opts.TrimTrailingDelimiter {
		line = strings.TrimSuffix(line, d)
	}
	return line
}

func (j *Job) flush(ctx context.Context) error {
	if j.batcher.Len() == 0 {
		return nil
	}
	j.setState(StateBatching)
	return j.apply(j.batcher.Flush(ctx))
}

// apply folds a flush into the counters.
func (j *Job) apply(res BatchResult) error {
	table := j.schema.Name()
	if res.Fallback {
		j.logger.Warn("bulk insert failed, replayed rows individually",
			"rows", res.Rows,
			"failed", len(res.Errors),
			"error", res.BulkError,
		)
	}

	// A cancelled replay may already have committed some rows.
	j.progress.Record(OutcomeImported, res.Imported, nil)
	j.progress.Duplicates(res.Imported - res.Written)
	for i := range res.Errors {
		j.progress.Record(OutcomeFailed, 1, &res.Errors[i])
	}

	metrics.RecordRows(table, "imported", res.Written)
	metrics.RecordRows(table, "duplicate", res.Imported-res.Written)
	metrics.RecordRows(table, "insert_failed", len(res.Errors))

	if res.Cancelled {
		return errStop
	}
	return nil
}

func (j *Job) emitProgress() {
	snap := j.progress.Snapshot()
	snap.BytesRead = j.src.BytesRead()
	snap.BytesTotal = j.src.Size
	snap.Percent = j.src.Progress()
	j.sink.Emit(Event{Type: EventProgress, Data: snap})
}

// abort emits the aborted event and returns ErrAborted wrapping the cause.
func (j *Job) abort(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	snap := j.progress.Snapshot()
	j.setState(StateAborted)
	j.logger.Info("import aborted", "processed", snap.Processed, "reason", cause)
	j.sink.Emit(Event{Type: EventAborted, Data: AbortInfo{
		Processed: snap.Processed,
		Imported:  snap.Imported,
		Failed:    snap.Failed,
		Reason:    cause.Error(),
	}})
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

func (j *Job) fail(err error) {
	j.setState(StateFailed)
	j.logger.Error("import failed", "error", err)
	msg := MapError(err)
	j.sink.Emit(Event{Type: EventError, Data: ErrorInfo{
		Error: err.Error(),
		Code:  msg.Code,
	}})
}
