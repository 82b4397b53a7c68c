package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxFileSize is the upload ceiling: 2 GiB of raw bytes.
const DefaultMaxFileSize int64 = 2 << 30

// DefaultRetention is how long finished imports stay queryable.
const DefaultRetention = 30 * time.Minute

var (
	errCancelRequested = errors.New("cancelled by request")
	errShuttingDown    = errors.New("server shutting down")
)

// Store is the destination database.
type Store interface {
	Inserter
	Count(ctx context.Context, schema *TableSchema) (int64, error)
	Truncate(ctx context.Context, schema *TableSchema) error
	Ping(ctx context.Context) error
	Close() error
}

// ServiceConfig tunes a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWait       time.Duration
	Retention     time.Duration

	// Defaults seeds every job; requests override FileName, Delimiter and
	// TrimTrailingDelimiter.
	Defaults JobOptions
}

// ImportRequest describes one upload before any of its bytes are read.
type ImportRequest struct {
	Table                 string
	FileName              string
	Delimiter             string
	Encoding              string
	Size                  int64 // Declared raw size, 0 if unknown
	TrimTrailingDelimiter bool
}

// Service provides the import operations shared by the HTTP server and the CLI.
type Service struct {
	store   Store
	cfg     ServiceConfig
	limiter *ImportLimiter
	logger  *slog.Logger

	mu      sync.RWMutex
	imports map[string]*activeImport
}

type activeImport struct {
	id       string
	schema   *TableSchema
	opts     JobOptions
	encoding string
	size     int64
	logger   *slog.Logger
	done     chan struct{}
	runOnce  sync.Once

	mu        sync.Mutex
	job       *Job
	cancel    context.CancelCauseFunc
	cancelled error // cancellation requested before Run
	finished  bool
	status    JobStatus
	errors    []ImportError
	listeners []chan Event
}

// NewService creates a Service writing to store.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	cfg.Defaults.applyDefaults()

	return &Service{
		store:   store,
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		logger:  slog.Default(),
		imports: make(map[string]*activeImport),
	}
}

// WithLogger replaces the service logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// MaxFileSize returns the configured upload ceiling.
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// DefaultDelimiter returns the delimiter used when a request names none.
func (s *Service) DefaultDelimiter() string {
	return s.cfg.Defaults.Delimiter
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// ImportHandle is an admitted import that holds a limiter slot. Exactly one
// of Run or Abandon must be called.
type ImportHandle struct {
	svc *Service
	imp *activeImport
}

// ID returns the import ID.
func (h *ImportHandle) ID() string { return h.imp.id }

// BeginImport validates req and reserves an import slot. All input rejection
// (unknown table, bad delimiter or encoding, oversize, saturation) happens
// here, before the caller commits to streaming a response.
func (s *Service) BeginImport(ctx context.Context, req ImportRequest) (*ImportHandle, error) {
	schema, err := Resolve(req.Table)
	if err != nil {
		return nil, err
	}

	delimiter := req.Delimiter
	if delimiter == "" {
		delimiter = s.cfg.Defaults.Delimiter
	}
	if err := ValidateDelimiter(delimiter); err != nil {
		return nil, err
	}
	if !ValidEncoding(req.Encoding) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, req.Encoding)
	}
	if req.Size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, req.Size, s.cfg.MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	opts := s.cfg.Defaults
	opts.FileName = req.FileName
	opts.Delimiter = delimiter
	opts.TrimTrailingDelimiter = req.TrimTrailingDelimiter

	id := uuid.New().String()
	client := RemoteAddrFromContext(ctx)
	imp := &activeImport{
		id:       id,
		schema:   schema,
		opts:     opts,
		encoding: req.Encoding,
		size:     req.Size,
		logger:   s.logger.With("job_id", id, "table", schema.Name()),
		done:     make(chan struct{}),
		status: JobStatus{
			ID:        id,
			Table:     schema.Name(),
			FileName:  req.FileName,
			Delimiter: delimiter,
			State:     StateIdle,
			StartedAt: time.Now().UTC(),
			Client:    client,
			Progress:  ImportProgress{BytesTotal: req.Size},
		},
	}

	s.mu.Lock()
	s.imports[id] = imp
	s.mu.Unlock()

	imp.logger.Info("import started",
		"file", req.FileName,
		"size", req.Size,
		"delimiter", delimiter,
		"client", client,
		"user_agent", UserAgentFromContext(ctx),
	)
	return &ImportHandle{svc: s, imp: imp}, nil
}

// Run streams r through a job, emitting events to sink. It blocks until the
// import ends and releases the slot. ctx cancellation and CancelImport both
// abort the job.
func (h *ImportHandle) Run(ctx context.Context, r io.Reader, sink EventSink) (result *ImportResult, err error) {
	ran := false
	h.imp.runOnce.Do(func() {
		ran = true
		result, err = h.svc.run(ctx, h.imp, r, sink)
	})
	if !ran {
		return nil, fmt.Errorf("import %s: %w", h.imp.id, ErrImportRunning)
	}
	return result, err
}

// Abandon releases the slot of an import that will never run, for example
// when the request body turns out to carry no file.
func (h *ImportHandle) Abandon(reason error) {
	h.imp.runOnce.Do(func() {
		if reason == nil {
			reason = errors.New("abandoned")
		}
		h.imp.Emit(Event{Type: EventError, Data: ErrorInfo{Error: reason.Error(), Code: MapError(reason).Code}})
		h.svc.finish(h.imp, nil, StateFailed, nil)
	})
}

// RunImport is BeginImport followed by Run.
func (s *Service) RunImport(ctx context.Context, req ImportRequest, r io.Reader, sink EventSink) (*ImportResult, error) {
	h, err := s.BeginImport(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, r, sink)
}

func (s *Service) run(ctx context.Context, imp *activeImport, r io.Reader, sink EventSink) (*ImportResult, error) {
	if sink == nil {
		sink = Discard
	}
	out := MultiSink{imp, sink}

	jobCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	src, err := OpenSource(NewLimitedReader(r, s.cfg.MaxFileSize), SourceOptions{FileName: imp.opts.FileName, Encoding: imp.encoding, Size: imp.size})
	if err != nil {
		err = fmt.Errorf("open source: %w", err)
		imp.logger.Error("import failed", "error", err)
		out.Emit(Event{Type: EventError, Data: ErrorInfo{Error: err.Error(), Code: MapError(err).Code}})
		s.finish(imp, nil, StateFailed, nil)
		return nil, err
	}
	defer src.Close()

	job := NewJob(imp.id, imp.schema, s.store, imp.opts).WithLogger(imp.logger)

	imp.mu.Lock()
	imp.job = job
	imp.cancel = cancel
	if imp.cancelled != nil {
		cancel(imp.cancelled)
	}
	imp.mu.Unlock()

	res, err := job.Run(jobCtx, src, out)
	s.finish(imp, res, job.State(), job.Failures())
	return res, err
}

// finish marks imp terminal, closes its listeners and frees its slot.
func (s *Service) finish(imp *activeImport, res *ImportResult, state JobState, errs []ImportError) {
	now := time.Now().UTC()

	imp.mu.Lock()
	imp.finished = true
	imp.status.State = state
	imp.status.FinishedAt = &now
	if res != nil {
		imp.status.Result = res
	}
	imp.errors = errs
	for _, ch := range imp.listeners {
		close(ch)
	}
	imp.listeners = nil
	imp.job = nil
	imp.mu.Unlock()

	close(imp.done)
	s.limiter.Release()
	s.cleanup(imp.id, s.cfg.Retention)
}

// cleanup removes the import from tracking after a delay.
func (s *Service) cleanup(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.imports, id)
		s.mu.Unlock()
	})
}

// Emit records the event in the import status and fans it out to listeners.
func (imp *activeImport) Emit(e Event) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	switch data := e.Data.(type) {
	case ImportProgress:
		imp.status.Progress = data
	case ImportResult:
		imp.status.Progress.Processed = data.TotalRows
		imp.status.Progress.Imported = data.ImportedRows
		imp.status.Progress.Failed = data.FailedRows
		imp.status.Progress.BytesRead = data.BytesRead
	case ErrorInfo:
		imp.status.Error = data.Error
	case AbortInfo:
		imp.status.Progress.Processed = data.Processed
		imp.status.Progress.Imported = data.Imported
		imp.status.Progress.Failed = data.Failed
		imp.status.Error = data.Reason
	}

	for _, ch := range imp.listeners {
		deliver(ch, e)
	}
}

// deliver never blocks. A listener that cannot keep up misses progress
// snapshots; terminal events evict the oldest queued event instead.
func deliver(ch chan Event, e Event) {
	select {
	case ch <- e:
		return
	default:
	}
	if !e.Terminal() {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
}

func (s *Service) lookup(id string) (*activeImport, error) {
	s.mu.RLock()
	imp, ok := s.imports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	return imp, nil
}

// snapshot returns the status with the live job state.
func (imp *activeImport) snapshot() JobStatus {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	st := imp.status
	if !imp.finished && imp.job != nil {
		st.State = imp.job.State()
	}
	st.Progress.Errors = slices.Clone(st.Progress.Errors)
	return st
}

// terminalEvent rebuilds the terminal event of a finished import.
// Caller holds imp.mu.
func (imp *activeImport) terminalEvent() Event {
	st := imp.status
	switch st.State {
	case StateCompleted:
		if st.Result != nil {
			return Event{Type: EventComplete, Data: *st.Result}
		}
	case StateAborted:
		return Event{Type: EventAborted, Data: AbortInfo{
			Processed: st.Progress.Processed,
			Imported:  st.Progress.Imported,
			Failed:    st.Progress.Failed,
			Reason:    st.Error,
		}}
	}
	return Event{Type: EventError, Data: ErrorInfo{Error: st.Error}}
}

// SubscribeEvents returns a channel that receives the import's events from
// now on, starting with the latest progress snapshot. The channel is closed
// after the terminal event. A finished import yields only its terminal
// event. Call the returned function to unsubscribe early.
func (s *Service) SubscribeEvents(id string) (<-chan Event, func(), error) {
	imp, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Event, 16)

	imp.mu.Lock()
	defer imp.mu.Unlock()

	if imp.finished {
		ch <- imp.terminalEvent()
		close(ch)
		return ch, func() {}, nil
	}

	ch <- Event{Type: EventProgress, Data: imp.status.Progress}
	imp.listeners = append(imp.listeners, ch)

	unsubscribe := func() {
		imp.mu.Lock()
		defer imp.mu.Unlock()
		for i, l := range imp.listeners {
			if l == ch {
				imp.listeners = append(imp.listeners[:i], imp.listeners[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe, nil
}

// CancelImport aborts a running import. Cancelling a finished import is a
// no-op.
func (s *Service) CancelImport(id string) error {
	imp, err := s.lookup(id)
	if err != nil {
		return err
	}
	imp.requestCancel(errCancelRequested)
	return nil
}

func (imp *activeImport) requestCancel(cause error) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.finished {
		return
	}
	if imp.cancel != nil {
		imp.cancel(cause)
		return
	}
	imp.cancelled = cause
}

// ImportStatus returns the current status of an import.
func (s *Service) ImportStatus(id string) (JobStatus, error) {
	imp, err := s.lookup(id)
	if err != nil {
		return JobStatus{}, err
	}
	return imp.snapshot(), nil
}

// ListImports returns running and retained imports, newest first.
func (s *Service) ListImports() []JobStatus {
	s.mu.RLock()
	imps := make([]*activeImport, 0, len(s.imports))
	for _, imp := range s.imports {
		imps = append(imps, imp)
	}
	s.mu.RUnlock()

	out := make([]JobStatus, len(imps))
	for i, imp := range imps {
		out[i] = imp.snapshot()
	}
	slices.SortFunc(out, func(a, b JobStatus) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ImportErrors returns every failed row of a finished import.
func (s *Service) ImportErrors(id string) (JobStatus, []ImportError, error) {
	imp, err := s.lookup(id)
	if err != nil {
		return JobStatus{}, nil, err
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	if !imp.finished {
		return JobStatus{}, nil, fmt.Errorf("import %s: %w", id, ErrImportRunning)
	}
	return imp.status, slices.Clone(imp.errors), nil
}

// Wait blocks until the import finishes or ctx ends.
func (s *Service) Wait(ctx context.Context, id string) (JobStatus, error) {
	imp, err := s.lookup(id)
	if err != nil {
		return JobStatus{}, err
	}
	select {
	case <-imp.done:
		return imp.snapshot(), nil
	case <-ctx.Done():
		return JobStatus{}, ctx.Err()
	}
}

// Tables returns every registered schema.
func (s *Service) Tables() []*TableSchema {
	return All()
}

// TableCount returns the number of rows in a table.
func (s *Service) TableCount(ctx context.Context, table string) (int64, error) {
	schema, err := Resolve(table)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Count(ctx, schema)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// TruncateTable deletes every row of a table. It refuses while an import
// into the same table is running.
func (s *Service) TruncateTable(ctx context.Context, table string) error {
	schema, err := Resolve(table)
	if err != nil {
		return err
	}

	for _, st := range s.ListImports() {
		if st.Table == schema.Name() && !st.State.Terminal() {
			return fmt.Errorf("truncate %s: %w", table, ErrImportRunning)
		}
	}

	if err := s.store.Truncate(ctx, schema); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	s.logger.Warn("table truncated", "table", schema.Name(), "client", RemoteAddrFromContext(ctx))
	return nil
}

// Ping checks the store connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Shutdown cancels every running import and waits for them to release
// their slots, or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, imp := range s.imports {
		imp.requestCancel(errShuttingDown)
	}
	s.mu.RUnlock()

	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for imports: %w", err)
	}
	return nil
}
