package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tpcload/internal/admin"
	"github.com/JonMunkholm/tpcload/internal/core"
)

// fieldResponse describes one column for API clients.
type fieldResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int    `json:"size,omitempty"`
	Optional bool   `json:"optional"`
}

// tableResponse is one registered schema.
type tableResponse struct {
	core.TableInfo
	Fields []fieldResponse `json:"fields"`
}

func toTableResponse(s *core.TableSchema) tableResponse {
	fields := make([]fieldResponse, len(s.FieldSpecs))
	for i, f := range s.FieldSpecs {
		fields[i] = fieldResponse{
			Name:     f.Name,
			Type:     f.Type.String(),
			Size:     f.Size,
			Optional: f.IsComment(),
		}
	}
	return tableResponse{TableInfo: s.Info, Fields: fields}
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := UploadPage(UploadPageParams{
		Tables:      s.service.Tables(),
		Delimiter:   s.service.DefaultDelimiter(),
		MaxFileSize: s.service.MaxFileSize(),
	})
	if err := page.Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}

// handleHealth reports store connectivity and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		body["status"] = "unavailable"
		body["error"] = core.MapError(err).Message
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// handleListTables returns every registered schema with its fields.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	schemas := s.service.Tables()
	out := make([]tableResponse, len(schemas))
	for i, sc := range schemas {
		out[i] = toTableResponse(sc)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTableCount returns the current row count of a table.
func (s *Server) handleTableCount(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	n, err := s.service.TableCount(r.Context(), table)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "count": n})
}

// handleTruncate empties a table.
func (s *Server) handleTruncate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	ctx := withRequestMetadata(r.Context(), r)
	if err := s.service.TruncateTable(ctx, table); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"table": table, "status": "truncated"})
}

// handleResetAll empties every registered table, children first.
func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r.Context(), r)
	names := core.Names()
	if err := admin.ResetAll(ctx, s.service, names); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": admin.LoadOrder(names), "status": "truncated"})
}
