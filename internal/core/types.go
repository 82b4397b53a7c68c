// Package core provides the business logic for delimited-file imports.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"strings"
	"time"
)

// Validator checks one raw field value and returns a failure reason,
// or "" when the value is acceptable. Validators must not panic.
type Validator func(value string) string

// FieldType is the destination column type, used for DDL generation.
type FieldType int

const (
	FieldInteger FieldType = iota
	FieldBigInt
	FieldDecimal
	FieldDate
	FieldChar
	FieldVarchar
)

var fieldTypeNames = [...]string{"integer", "bigint", "decimal", "date", "char", "varchar"}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return "unknown"
}

// FieldSpec describes one column of a delimited record.
type FieldSpec struct {
	Name     string    // Column name, also the field name in error messages
	Type     FieldType // Destination column type
	Size     int       // Length for FieldChar/FieldVarchar
	Validate Validator // Optional per-field rule
}

// IsComment reports whether the field holds free text that may be empty.
func (f FieldSpec) IsComment() bool {
	return strings.Contains(f.Name, "comment")
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key        string   `json:"key"`        // Unique identifier: "lineitem"
	Group      string   `json:"group"`      // Benchmark family: "TPC-H"
	Label      string   `json:"label"`      // Display name: "Line items"
	Columns    []string `json:"columns"`    // Column names in file order
	PrimaryKey []string `json:"primaryKey"` // Columns the conflict policy keys on
}

// TableSchema is a registered table: ordered fields plus the
// field name -> validator strategy map. Immutable once registered.
type TableSchema struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
	Validators map[string]Validator
}

// Name returns the table name.
func (s *TableSchema) Name() string { return s.Info.Key }

// Fields returns the ordered field names.
func (s *TableSchema) Fields() []string { return s.Info.Columns }

// Inserter is the row-insertion backend. Both methods must tolerate
// duplicate primary keys by skipping the row, not by failing.
// The returned count is the number of rows actually written.
type Inserter interface {
	InsertBatch(ctx context.Context, schema *TableSchema, rows [][]string) (int64, error)
	InsertRow(ctx context.Context, schema *TableSchema, row []string) (int64, error)
}

// ImportError records a single failed line.
type ImportError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Data   string `json:"data"`
}

// ImportProgress is a mid-stream snapshot.
type ImportProgress struct {
	Processed  int           `json:"processed"`
	Imported   int           `json:"imported"`
	Failed     int           `json:"failed"`
	Errors     []ImportError `json:"errors"`
	BytesRead  int64         `json:"bytesRead"`
	BytesTotal int64         `json:"bytesTotal,omitempty"`
	Percent    int           `json:"percent,omitempty"` // Raw bytes read as 0-100, 0 when the size is unknown
}

// ImportResult is the terminal accounting of a job.
// TotalRows == ImportedRows + FailedRows always holds.
type ImportResult struct {
	TotalRows     int           `json:"totalRows"`
	ImportedRows  int           `json:"importedRows"`
	FailedRows    int           `json:"failedRows"`
	Errors        []ImportError `json:"errors"`
	Success       bool          `json:"success"`
	DuplicateRows int           `json:"duplicateRows"`
	DurationMs    int64         `json:"durationMs"`
	BytesRead     int64         `json:"bytesRead"`
	FileHash      string        `json:"fileHash,omitempty"`
}

// JobState is the orchestrator's position in an import pass.
type JobState string

const (
	StateIdle       JobState = "idle"
	StateReading    JobState = "reading"
	StateValidating JobState = "validating"
	StateBatching   JobState = "batching"
	StateDraining   JobState = "draining"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
	StateAborted    JobState = "aborted"
)

// Terminal reports whether no further transitions can happen.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// JobStatus is the externally visible summary of an import job.
type JobStatus struct {
	ID         string         `json:"id"`
	Table      string         `json:"table"`
	FileName   string         `json:"fileName"`
	Delimiter  string         `json:"delimiter"`
	State      JobState       `json:"state"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Progress   ImportProgress `json:"progress"`
	Result     *ImportResult  `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	Client     string         `json:"client,omitempty"`
}
