package core

// streaming.go provides the readers that sit between an upload and the
// line reassembler:
//
//   - CountingReader: tracks raw bytes consumed for progress reporting
//   - HashingReader: fingerprints the raw upload with xxh3
//
// OpenSource (decode.go) stacks these with decompression and charset
// decoding in the correct order.

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

// CountingReader wraps an io.Reader to track bytes read. BytesRead is safe
// to call from other goroutines while the owner reads.
type CountingReader struct {
	reader io.Reader
	read   atomic.Int64
	Total  int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read.Add(int64(n))
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (r *CountingReader) BytesRead() int64 {
	return r.read.Load()
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	p := int(r.BytesRead() * 100 / r.Total)
	if p > 100 {
		p = 100
	}
	return p
}

// HashingReader feeds everything read through it into an xxh3 hasher.
type HashingReader struct {
	reader io.Reader
	hasher *xxh3.Hasher
}

// NewHashingReader wraps r.
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{reader: r, hasher: xxh3.New()}
}

// Read implements io.Reader.
func (r *HashingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		_, _ = r.hasher.Write(p[:n])
	}
	return n, err
}

// Sum returns the hex xxh3-64 digest of the bytes read so far.
// Only meaningful once the reader has been drained.
func (r *HashingReader) Sum() string {
	return fmt.Sprintf("%016x", r.hasher.Sum64())
}

// LimitedReader fails with ErrFileTooLarge once more than Max bytes have
// been read. Unlike io.LimitReader it does not end the stream silently.
type LimitedReader struct {
	reader io.Reader
	Max    int64
	read   int64
}

// NewLimitedReader wraps r with a ceiling of max bytes.
func NewLimitedReader(r io.Reader, max int64) *LimitedReader {
	return &LimitedReader{reader: r, Max: max}
}

// Read implements io.Reader.
func (r *LimitedReader) Read(p []byte) (int, error) {
	if r.read > r.Max {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Max)
	}
	// Allow one byte past the ceiling so an exact-size file still sees EOF.
	if room := r.Max - r.read + 1; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.read > r.Max {
		return n - int(r.read-r.Max), fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Max)
	}
	return n, err
}
