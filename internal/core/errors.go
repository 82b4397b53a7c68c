package core

import "errors"

var (
	// ErrUnknownTable is returned for table names with no registered schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrFileTooLarge is returned when an upload exceeds the size ceiling.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when a request carries no file part.
	ErrNoFile = errors.New("no file provided")

	// ErrInvalidDelimiter is returned for empty or newline-bearing delimiters.
	ErrInvalidDelimiter = errors.New("invalid delimiter")

	// ErrUnsupportedEncoding is returned for character sets the importer cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrImportNotFound is returned when an import ID is unknown or has expired.
	ErrImportNotFound = errors.New("import not found")

	// ErrImportRunning is returned when an operation needs an import to have
	// finished, or a table is still receiving one.
	ErrImportRunning = errors.New("import still running")

	// ErrAborted marks a job stopped by cancellation.
	ErrAborted = errors.New("import aborted")
)
