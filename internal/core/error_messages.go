package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Codes are grouped by category:
//
//	DB001-DB099    destination store (constraints, connectivity, timeouts)
//	IMP001-IMP099  import lifecycle (cancelled, busy, not found, still running)
//	FILE001-FILE099 the uploaded file (size, encoding, delimiter, empty)
//	TBL001-TBL099  table selection
//	RATE001        request throttling
//	ERR000         fallback; check the logs for the original error
//
// Sentinel errors are matched with errors.Is first; anything else falls
// through to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
var errorPatterns = []errorPattern{
	// Database constraint errors. Duplicates never reach here on the
	// import path because inserts skip conflicting keys.
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Re-run the import; duplicate keys are skipped",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value violates a table constraint",
			Action:  "Download failed rows and correct the offending values",
			Code:    "DB002",
		},
	},
	{
		pattern: "check constraint failed",
		msg: UserMessage{
			Message: "A value violates a table constraint",
			Action:  "Download failed rows and correct the offending values",
			Code:    "DB002",
		},
	},
	{
		pattern: "value too long",
		msg: UserMessage{
			Message: "A value is longer than its column allows",
			Action:  "Download failed rows and shorten the offending values",
			Code:    "DB002",
		},
	},
	{
		pattern: "data too long",
		msg: UserMessage{
			Message: "A value is longer than its column allows",
			Action:  "Download failed rows and shorten the offending values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import parent tables (region, nation, part, supplier, customer) first",
			Code:    "DB003",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The destination table does not exist",
			Action:  "Create the TPC-H schema or start the server with DB_BOOTSTRAP=true",
			Code:    "DB004",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "The destination table does not exist",
			Action:  "Create the TPC-H schema or start the server with DB_BOOTSTRAP=true",
			Code:    "DB004",
		},
	},

	// Database connection errors.
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB005",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later or split the file",
			Code:    "DB007",
		},
	},

	// Transport errors.
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit (2 GiB)",
			Action:  "Split the file or compress it",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unexpected eof",
		msg: UserMessage{
			Message: "The upload ended before the file was complete",
			Action:  "Check your connection and upload the file again",
			Code:    "FILE004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// sentinelMessages maps package sentinels to messages. Checked before patterns.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrAborted, UserMessage{Message: "Import was cancelled", Action: "Start a new import when ready", Code: "IMP001"}},
	{context.Canceled, UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "IMP001"}},
	{ErrTooManyImports, UserMessage{Message: "Too many imports in progress", Action: "Please wait a moment and try again", Code: "IMP002"}},
	{ErrImportNotFound, UserMessage{Message: "Import not found", Action: "The import may have expired. Start a new import", Code: "IMP003"}},
	{ErrImportRunning, UserMessage{Message: "Import is still running", Action: "Wait for the import to finish", Code: "IMP004"}},
	{context.DeadlineExceeded, UserMessage{Message: "Request timed out", Action: "Check your connection and try again", Code: "IMP005"}},
	{ErrFileTooLarge, UserMessage{Message: "File exceeds the maximum size limit (2 GiB)", Action: "Split the file or compress it", Code: "FILE001"}},
	{ErrNoFile, UserMessage{Message: "No file was selected", Action: "Please select a file to import", Code: "FILE002"}},
	{ErrInvalidDelimiter, UserMessage{Message: "The field delimiter is invalid", Action: "Use a single character such as | or ,", Code: "FILE003"}},
	{ErrUnsupportedEncoding, UserMessage{Message: "The file encoding is not supported", Action: "Use utf-8, gbk or gb18030", Code: "FILE005"}},
	{ErrUnknownTable, UserMessage{Message: "Unsupported table name", Action: "Choose one of the TPC-H tables", Code: "TBL001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("open source: %w", ErrFileTooLarge))
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
