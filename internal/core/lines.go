package core

import (
	"bytes"
	"strings"
)

// LineReassembler turns arbitrarily fragmented byte chunks into complete
// newline-terminated lines. The unterminated tail of one chunk is carried
// into the next, so output does not depend on where chunk boundaries fall.
//
// A LineReassembler is owned by a single job goroutine and is not safe for
// concurrent use.
type LineReassembler struct {
	buf     []byte
	scanned int // prefix of buf already known to hold no '\n'
}

// Feed appends chunk and returns every line it completes, without the
// trailing '\n'. The returned strings do not alias the internal buffer.
func (r *LineReassembler) Feed(chunk []byte) []string {
	r.buf = append(r.buf, chunk...)

	var lines []string
	start := 0
	for {
		from := start
		if r.scanned > from {
			from = r.scanned
		}
		i := bytes.IndexByte(r.buf[from:], '\n')
		if i < 0 {
			break
		}
		end := from + i
		lines = append(lines, string(r.buf[start:end]))
		start = end + 1
		r.scanned = 0
	}

	if start > 0 {
		n := copy(r.buf, r.buf[start:])
		r.buf = r.buf[:n]
	}
	r.scanned = len(r.buf)
	return lines
}

// Flush returns the unterminated tail at end of stream. A tail that is
// empty or only whitespace is discarded and reported as absent.
func (r *LineReassembler) Flush() (string, bool) {
	tail := string(r.buf)
	r.buf = r.buf[:0]
	r.scanned = 0
	if strings.TrimSpace(tail) == "" {
		return "", false
	}
	return tail, true
}
