package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tpcload/internal/core"
	"github.com/JonMunkholm/tpcload/internal/logging"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file ceiling.
const multipartOverhead = 64 << 10

// maxFieldSize bounds a non-file form value.
const maxFieldSize = 4 << 10

// handleImportMultipart streams the "file" part of a multipart form into an
// import. Option fields must precede the file part; the form on / sends
// them in that order. Query parameters supply defaults.
func (s *Server) handleImportMultipart(w http.ResponseWriter, r *http.Request) {
	limit := s.service.MaxFileSize() + multipartOverhead
	if r.ContentLength > limit {
		respondError(w, r, fmt.Errorf("%w: declared %d bytes", core.ErrFileTooLarge, r.ContentLength))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: expected multipart/form-data", errBadRequest))
		return
	}

	var file *multipart.Part
	for file == nil {
		part, err := mr.NextPart()
		if err == io.EOF {
			respondError(w, r, core.ErrNoFile)
			return
		}
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: read form: %w", errBadRequest, err))
			return
		}
		if part.FormName() == "file" {
			file = part
			continue
		}
		value, err := readField(part)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if err := req.set(part.FormName(), value); err != nil {
			respondError(w, r, err)
			return
		}
	}
	defer file.Close()

	if req.Table == "" {
		respondError(w, r, fmt.Errorf("%w: missing table; send the table field before file, or pass ?table=", errBadRequest))
		return
	}
	req.FileName = file.FileName()
	s.streamImport(w, r, req.ImportRequest, file)
}

// handleImportRaw imports the request body itself into {table}. Options
// come from the query string; X-Filename names the upload so compressed
// bodies are recognised by extension.
func (s *Server) handleImportRaw(w http.ResponseWriter, r *http.Request) {
	limit := s.service.MaxFileSize()
	if r.ContentLength > limit {
		respondError(w, r, fmt.Errorf("%w: declared %d bytes", core.ErrFileTooLarge, r.ContentLength))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.Table = chi.URLParam(r, "table")
	req.FileName = r.Header.Get("X-Filename")
	if req.FileName == "" {
		req.FileName = req.Table + ".tbl"
	}
	if r.ContentLength > 0 {
		req.Size = r.ContentLength
	}
	s.streamImport(w, r, req.ImportRequest, r.Body)
}

// streamImport admits the import, then answers with the NDJSON event
// stream while the body is still being read. Nothing is written before
// BeginImport succeeds, so rejections get a plain JSON error.
func (s *Server) streamImport(w http.ResponseWriter, r *http.Request, req core.ImportRequest, body io.Reader) {
	ctx := withRequestMetadata(r.Context(), r)
	logger := logging.WithFields(ctx, "table", req.Table, "file", req.FileName)

	h, err := s.service.BeginImport(ctx, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// The client may have gone away while queued for a slot.
	if err := ctx.Err(); err != nil {
		h.Abandon(err)
		respondError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.EnableFullDuplex(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Debug("full duplex unavailable", "error", err)
	}
	flush := func() error {
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Import-ID", h.ID())
	w.WriteHeader(http.StatusOK)

	stream := core.NewNDJSONStream(w, flush, 64)
	_, runErr := h.Run(ctx, body, stream)
	if err := stream.Close(); err != nil {
		logger.Info("event stream closed early", "job_id", h.ID(), "error", err)
	}
	if dropped := stream.Dropped(); dropped > 0 {
		logger.Debug("progress events dropped", "job_id", h.ID(), "count", dropped)
	}
	if runErr != nil && !errors.Is(runErr, core.ErrAborted) {
		logger.Warn("import ended with error", "job_id", h.ID(), "error", runErr)
	}
}

// importRequest is a core.ImportRequest being assembled from a request.
type importRequest struct {
	core.ImportRequest
}

func requestFromQuery(q url.Values) (importRequest, error) {
	var req importRequest
	for _, key := range []string{"table", "delimiter", "encoding", "trimTrailing", "size"} {
		if v := q.Get(key); v != "" {
			if err := req.set(key, v); err != nil {
				return req, err
			}
		}
	}
	return req, nil
}

// set applies one named option. Unknown names are ignored.
func (req *importRequest) set(name, value string) error {
	switch name {
	case "table":
		req.Table = strings.TrimSpace(value)
	case "delimiter":
		req.Delimiter = decodeDelimiter(value)
	case "encoding":
		req.Encoding = strings.TrimSpace(value)
	case "trimTrailing":
		if value == "" {
			return nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: trimTrailing must be a boolean", errBadRequest)
		}
		req.TrimTrailingDelimiter = b
	case "size":
		if value == "" {
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: size must be a non-negative integer", errBadRequest)
		}
		req.Size = n
	}
	return nil
}

// decodeDelimiter accepts the spelled-out names forms and shells use for
// characters that are awkward to type.
func decodeDelimiter(v string) string {
	switch strings.ToLower(v) {
	case `\t`, "tab":
		return "\t"
	case "pipe":
		return "|"
	case "comma":
		return ","
	case "semicolon":
		return ";"
	}
	return v
}

func readField(p *multipart.Part) (string, error) {
	defer p.Close()
	b, err := io.ReadAll(io.LimitReader(p, maxFieldSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: read field %q: %w", errBadRequest, p.FormName(), err)
	}
	if len(b) > maxFieldSize {
		return "", fmt.Errorf("%w: field %q too long", errBadRequest, p.FormName())
	}
	return string(b), nil
}
