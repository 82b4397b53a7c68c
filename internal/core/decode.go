package core

// decode.go turns an uploaded byte stream into UTF-8 text for the line
// reassembler. The reader stack, outermost first:
//
//	charset decoder (BOM stripped, invalid bytes replaced)
//	decompressor (gzip, zstd or xz, by file name or magic bytes)
//	HashingReader (fingerprint of the raw upload)
//	CountingReader (raw bytes consumed)
//	upload

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Compression identifies a supported upload compression format.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionXZ   Compression = "xz"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXZ   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// SourceOptions describe how to interpret an upload.
type SourceOptions struct {
	FileName string // Used for compression detection by extension
	Encoding string // Character set; "" and "utf-8" mean UTF-8
	Size     int64  // Declared raw size, 0 if unknown
}

// Source is a decoded upload ready for line reassembly.
type Source struct {
	io.Reader

	Compression Compression
	Size        int64

	counter *CountingReader
	hasher  *HashingReader
	closers []func() error
}

// BytesRead returns the raw (possibly compressed) bytes consumed.
func (s *Source) BytesRead() int64 { return s.counter.BytesRead() }

// Progress returns the share of the declared size read so far, 0-100.
func (s *Source) Progress() int { return s.counter.Progress() }

// Hash returns the xxh3 fingerprint of the raw bytes consumed.
func (s *Source) Hash() string { return s.hasher.Sum() }

// Close releases decompressor resources. It does not close the upload.
func (s *Source) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// OpenSource builds the reader stack for r.
func OpenSource(r io.Reader, opts SourceOptions) (*Source, error) {
	dec, err := textDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	src := &Source{Size: opts.Size}
	src.counter = NewCountingReader(r, opts.Size)
	src.hasher = NewHashingReader(src.counter)

	br := bufio.NewReaderSize(src.hasher, 64*1024)
	comp := compressionByName(opts.FileName)
	if comp == CompressionNone {
		comp = sniffCompression(br)
	}
	src.Compression = comp

	var plain io.Reader = br
	switch comp {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		src.closers = append(src.closers, gz.Close)
		plain = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		src.closers = append(src.closers, func() error { zr.Close(); return nil })
		plain = zr
	case CompressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		plain = xr
	}

	src.Reader = transform.NewReader(plain, dec)
	return src, nil
}

// textDecoder returns a transformer producing UTF-8 from the named charset.
func textDecoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "gbk", "cp936":
		return withBOM(simplifiedchinese.GBK), nil
	case "gb18030":
		return withBOM(simplifiedchinese.GB18030), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
	return withBOM(enc), nil
}

// withBOM lets a UTF BOM override the declared charset, as browsers do.
func withBOM(enc encoding.Encoding) transform.Transformer {
	return unicode.BOMOverride(enc.NewDecoder())
}

func compressionByName(name string) Compression {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".xz":
		return CompressionXZ
	}
	return CompressionNone
}

func sniffCompression(br *bufio.Reader) Compression {
	head, _ := br.Peek(len(magicXZ))
	switch {
	case bytes.HasPrefix(head, magicGzip):
		return CompressionGzip
	case bytes.HasPrefix(head, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(head, magicXZ):
		return CompressionXZ
	}
	return CompressionNone
}

// ValidEncoding reports whether name can be decoded.
func ValidEncoding(name string) bool {
	_, err := textDecoder(name)
	return err == nil
}
