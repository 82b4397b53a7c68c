package core

// validation.go checks a single delimited record against a table schema.
//
// Checks run in order and stop at the first failure:
//  1. Field count must match the schema
//  2. Non-comment fields must not be empty ("0" is a value, not empty)
//  3. The field's validator, if any, must accept the value

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxErrorData is the number of characters of a raw line kept in an ImportError.
const MaxErrorData = 100

// ValidationError describes why a record was rejected.
type ValidationError struct {
	Field  string // Offending field, empty for field-count mismatches
	Value  string // Offending raw value
	Reason string // Human-readable message
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ValidateRecord splits line on delimiter and validates every field.
// On success the returned slice has exactly len(schema.Fields()) values.
func ValidateRecord(schema *TableSchema, line, delimiter string) ([]string, *ValidationError) {
	values := strings.Split(line, delimiter)
	fields := schema.FieldSpecs

	if len(values) != len(fields) {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("field count mismatch: expected %d fields, got %d", len(fields), len(values)),
		}
	}

	for i, spec := range fields {
		value := values[i]

		if value == "" && !spec.IsComment() {
			return nil, &ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("field %s must not be empty", spec.Name),
			}
		}

		if validate, ok := schema.Validators[spec.Name]; ok {
			if msg := validate(value); msg != "" {
				return nil, &ValidationError{
					Field:  spec.Name,
					Value:  value,
					Reason: fmt.Sprintf("field %s failed validation: %s", spec.Name, msg),
				}
			}
		}
	}

	return values, nil
}

// TruncateData shortens a raw line for inclusion in an ImportError,
// keeping the first MaxErrorData characters and marking the cut with "...".
func TruncateData(line string) string {
	if utf8.RuneCountInString(line) <= MaxErrorData {
		return line
	}
	n := 0
	for i := range line {
		if n == MaxErrorData {
			return line[:i] + "..."
		}
		n++
	}
	return line
}
