package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tpcload/internal/logging"
)

// sseKeepAlive is the interval of comment lines that keep idle proxies
// from closing an event stream.
const sseKeepAlive = 15 * time.Second

// handleListImports returns running and retained imports, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"imports": s.service.ListImports(),
		"limiter": s.service.LimiterStatus(),
	})
}

// handleImportStatus returns one import's status, with its result once
// finished.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.ImportStatus(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCancelImport aborts a running import. The importing request ends
// with an aborted event.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.CancelImport(id); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("import cancel requested", "job_id", id, "client", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
}

// handleImportEvents mirrors an import's event stream as Server-Sent
// Events, so a second client can watch an import it did not start. The
// stream opens with the latest progress snapshot and ends after the
// terminal event.
func (s *Server) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	events, unsubscribe, err := s.service.SubscribeEvents(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer unsubscribe()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	seq := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				logging.FromContext(r.Context()).Error("encode event", "error", err)
				return
			}
			seq++
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, data)
			if err := rc.Flush(); err != nil {
				return
			}
			if ev.Terminal() {
				return
			}

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}
