package core

// events.go defines the progress protocol and its NDJSON framing.
//
// A job emits, in order: one fileInfo event, any number of progress events,
// then exactly one terminal event (complete, error or aborted).

import (
	"encoding/json"
	"io"
	"sync"
)

// EventType names a protocol message.
type EventType string

const (
	EventFileInfo EventType = "fileInfo"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
	EventAborted  EventType = "aborted"
)

// Event is one protocol message.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Terminal reports whether the event ends a job's stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError || e.Type == EventAborted
}

// FileInfo is the payload of EventFileInfo.
type FileInfo struct {
	JobID     string `json:"jobId"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	Table     string `json:"table"`
	Delimiter string `json:"delimiter"`
}

// ErrorInfo is the payload of EventError.
type ErrorInfo struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AbortInfo is the payload of EventAborted.
type AbortInfo struct {
	Processed int    `json:"processed"`
	Imported  int    `json:"imported"`
	Failed    int    `json:"failed"`
	Reason    string `json:"reason"`
}

// EventSink receives a job's events in order. Emit must not block the job
// for long on progress events; terminal events must be delivered.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans every event out to each sink in order.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops every event.
var Discard EventSink = SinkFunc(func(Event) {})

// NDJSONStream writes events as newline-delimited JSON from its own
// goroutine, so a slow consumer never stalls the job. Progress events are
// dropped when the buffer is full (a later snapshot supersedes them);
// every other event waits for room.
type NDJSONStream struct {
	ch    chan Event
	done  chan struct{}
	enc   *json.Encoder
	flush func() error

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
	dropped   int
}

// NewNDJSONStream starts a writer. flush, if non-nil, is called after every
// line, typically http.ResponseController.Flush.
func NewNDJSONStream(w io.Writer, flush func() error, buffer int) *NDJSONStream {
	if buffer <= 0 {
		buffer = 16
	}
	s := &NDJSONStream{
		ch:    make(chan Event, buffer),
		done:  make(chan struct{}),
		enc:   json.NewEncoder(w),
		flush: flush,
	}
	go s.run()
	return s
}

func (s *NDJSONStream) run() {
	defer close(s.done)
	for ev := range s.ch {
		if s.Err() != nil {
			continue // consumer is gone; keep draining so Emit never blocks
		}
		err := s.enc.Encode(ev)
		if err == nil && s.flush != nil {
			err = s.flush()
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}
}

// Emit implements EventSink.
func (s *NDJSONStream) Emit(e Event) {
	if e.Type == EventProgress {
		select {
		case s.ch <- e:
		default:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		}
		return
	}
	s.ch <- e
}

// Close stops accepting events, waits for buffered ones to be written and
// returns the first write error. Emit must not be called after Close.
func (s *NDJSONStream) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	<-s.done
	return s.Err()
}

// Err returns the first write error, if any.
func (s *NDJSONStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of progress events skipped for a slow consumer.
func (s *NDJSONStream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
