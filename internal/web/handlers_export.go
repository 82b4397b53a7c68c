package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/tpcload/internal/core"
	"github.com/JonMunkholm/tpcload/internal/logging"
)

const failedRowsSheet = "Failed rows"

var failedRowsHeader = []string{"line", "reason", "data"}

// handleExportErrors downloads every failed row of a finished import as
// csv (default), xlsx or json.
func (s *Server) handleExportErrors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, rows, err := s.service.ImportErrors(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	base := fmt.Sprintf("%s_failed_rows_%s", st.Table, time.Now().UTC().Format("20060102_150405"))

	switch format {
	case "csv":
		setAttachment(w, "text/csv; charset=utf-8", base+".csv")
		if err := writeFailedRowsCSV(w, rows); err != nil {
			logging.FromContext(r.Context()).Error("export failed rows", "job_id", id, "error", err)
		}
	case "xlsx":
		f, err := failedRowsWorkbook(rows)
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer f.Close()
		setAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", base+".xlsx")
		if err := f.Write(w); err != nil {
			logging.FromContext(r.Context()).Error("export failed rows", "job_id", id, "error", err)
		}
	case "json":
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "table": st.Table, "errors": rows})
	default:
		respondError(w, r, fmt.Errorf("%w: format must be csv, xlsx or json", errBadRequest))
	}
}

func setAttachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
}

func writeFailedRowsCSV(w http.ResponseWriter, rows []core.ImportError) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(failedRowsHeader); err != nil {
		return err
	}
	for _, e := range rows {
		if err := cw.Write([]string{strconv.Itoa(e.Line), e.Reason, e.Data}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// failedRowsWorkbook builds a single-sheet workbook with the stream
// writer, which keeps memory flat for large error sets.
func failedRowsWorkbook(rows []core.ImportError) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", failedRowsSheet); err != nil {
		f.Close()
		return nil, err
	}
	sw, err := f.NewStreamWriter(failedRowsSheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	header := make([]any, len(failedRowsHeader))
	for i, h := range failedRowsHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, err
	}
	for i, e := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := sw.SetRow(cell, []any{e.Line, e.Reason, e.Data}); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
