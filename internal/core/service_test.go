package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func newTestService(store *fakeStore, maxConcurrent int) *Service {
	return NewService(store, ServiceConfig{
		MaxConcurrent: maxConcurrent,
		MaxWait:       20 * time.Millisecond,
		Retention:     time.Minute,
	})
}

func TestService_BeginImportRejectsBadInput(t *testing.T) {
	svc := newTestService(&fakeStore{}, 1)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ImportRequest
		want error
	}{
		{"unknown table", ImportRequest{Table: "widgets"}, ErrUnknownTable},
		{"bad delimiter", ImportRequest{Table: "region", Delimiter: "\n"}, ErrInvalidDelimiter},
		{"bad encoding", ImportRequest{Table: "region", Encoding: "klingon"}, ErrUnsupportedEncoding},
		{"too large", ImportRequest{Table: "region", Size: DefaultMaxFileSize + 1}, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BeginImport(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("rejected requests hold %d slots", got)
	}
}

func TestService_RunImport(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, 2)
	ctx := ContextWithRemoteAddr(context.Background(), "10.0.0.1")

	rec := &eventRecorder{}
	input := "0|AFRICA|lar deposits|\n1|AMERICA|hs use ironic|\n"
	res, err := svc.RunImport(ctx, ImportRequest{Table: "region", FileName: "region.tbl", TrimTrailingDelimiter: true}, strings.NewReader(input), rec)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if res.ImportedRows != 2 || store.count() != 2 {
		t.Errorf("imported %d, stored %d", res.ImportedRows, store.count())
	}

	info := rec.all()[0].Data.(FileInfo)
	st, err := svc.ImportStatus(info.JobID)
	if err != nil {
		t.Fatalf("ImportStatus: %v", err)
	}
	if st.State != StateCompleted || st.Result == nil || st.FinishedAt == nil {
		t.Errorf("status = %+v", st)
	}
	if st.Client != "10.0.0.1" || st.Delimiter != "|" {
		t.Errorf("Client=%q Delimiter=%q", st.Client, st.Delimiter)
	}
	if len(svc.ListImports()) != 1 {
		t.Errorf("ListImports = %d entries", len(svc.ListImports()))
	}
	if svc.LimiterStatus().Active != 0 {
		t.Error("slot not released")
	}

	n, err := svc.TableCount(ctx, "region")
	if err != nil || n != 2 {
		t.Errorf("TableCount = %d, %v", n, err)
	}
}

func TestService_LimiterSaturation(t *testing.T) {
	svc := newTestService(&fakeStore{}, 1)
	ctx := context.Background()

	h, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	if _, err := svc.BeginImport(ctx, ImportRequest{Table: "region"}); !errors.Is(err, ErrTooManyImports) {
		t.Errorf("second BeginImport = %v, want ErrTooManyImports", err)
	}

	h.Abandon(ErrNoFile)
	st, _ := svc.ImportStatus(h.ID())
	if st.State != StateFailed || st.Error != ErrNoFile.Error() {
		t.Errorf("abandoned status = %+v", st)
	}
	if _, err := h.Run(ctx, strings.NewReader(""), nil); !errors.Is(err, ErrImportRunning) {
		t.Errorf("Run after Abandon = %v", err)
	}

	h2, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("slot not released by Abandon: %v", err)
	}
	h2.Abandon(nil)
}

func TestService_CancelBeforeRun(t *testing.T) {
	svc := newTestService(&fakeStore{}, 1)
	ctx := context.Background()

	h, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	if err := svc.CancelImport(h.ID()); err != nil {
		t.Fatalf("CancelImport: %v", err)
	}

	rec := &eventRecorder{}
	_, err = h.Run(ctx, strings.NewReader(joinLines(regionLines(10))), rec)
	if !errors.Is(err, ErrAborted) || !errors.Is(err, errCancelRequested) {
		t.Fatalf("err = %v, want abort by request", err)
	}
	last := rec.all()[len(rec.all())-1]
	if last.Type != EventAborted || last.Data.(AbortInfo).Reason != errCancelRequested.Error() {
		t.Errorf("last event = %+v", last)
	}

	st, _ := svc.ImportStatus(h.ID())
	if st.State != StateAborted {
		t.Errorf("state = %s, want aborted", st.State)
	}
	if err := svc.CancelImport(h.ID()); err != nil {
		t.Errorf("cancelling a finished import = %v", err)
	}
	if err := svc.CancelImport("missing"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("CancelImport(missing) = %v", err)
	}
}

func TestService_SubscribeEvents(t *testing.T) {
	svc := newTestService(&fakeStore{}, 1)
	ctx := context.Background()

	h, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	events, unsubscribe, err := svc.SubscribeEvents(h.ID())
	if err != nil {
		t.Fatalf("SubscribeEvents: %v", err)
	}
	defer unsubscribe()

	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte(joinLines(regionLines(3))))
		pw.Close()
	}()
	if _, err := h.Run(ctx, pr, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var types []EventType
	for e := range events {
		types = append(types, e.Type)
	}
	if len(types) < 3 || types[0] != EventProgress || types[1] != EventFileInfo || types[len(types)-1] != EventComplete {
		t.Errorf("received %v", types)
	}

	late, _, err := svc.SubscribeEvents(h.ID())
	if err != nil {
		t.Fatalf("late SubscribeEvents: %v", err)
	}
	var got []Event
	for e := range late {
		got = append(got, e)
	}
	if len(got) != 1 || got[0].Type != EventComplete {
		t.Errorf("late subscriber got %+v, want only complete", got)
	}
}

func TestService_ImportErrors(t *testing.T) {
	svc := newTestService(&fakeStore{}, 1)
	ctx := context.Background()

	h, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	if _, _, err := svc.ImportErrors(h.ID()); !errors.Is(err, ErrImportRunning) {
		t.Errorf("ImportErrors while pending = %v", err)
	}

	lines := regionLines(30)
	for i := range lines {
		lines[i] = "x" + lines[i]
	}
	if _, err := h.Run(ctx, strings.NewReader(joinLines(lines)), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	st, errs, err := svc.ImportErrors(h.ID())
	if err != nil {
		t.Fatalf("ImportErrors: %v", err)
	}
	if len(errs) != 30 {
		t.Errorf("got %d errors, want all 30", len(errs))
	}
	if st.Result == nil || st.Result.Success {
		t.Errorf("result = %+v, want unsuccessful", st.Result)
	}
}

func TestService_TruncateRefusesDuringImport(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, 1)
	ctx := context.Background()

	h, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	if err := svc.TruncateTable(ctx, "region"); !errors.Is(err, ErrImportRunning) {
		t.Errorf("TruncateTable during import = %v", err)
	}
	h.Abandon(nil)

	if err := svc.TruncateTable(ctx, "region"); err != nil {
		t.Fatalf("TruncateTable: %v", err)
	}
	if len(store.truncated) != 1 {
		t.Errorf("truncated = %v", store.truncated)
	}
	if err := svc.TruncateTable(ctx, "nope"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("TruncateTable(nope) = %v", err)
	}
}

func TestService_Shutdown(t *testing.T) {
	svc := NewService(&fakeStore{}, ServiceConfig{
		MaxConcurrent: 1,
		MaxWait:       20 * time.Millisecond,
		Defaults:      JobOptions{ProgressEvery: 1},
	})
	ctx := context.Background()

	h, err := svc.BeginImport(ctx, ImportRequest{Table: "region"})
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}

	pr, pw := io.Pipe()
	defer pw.Close()
	done := make(chan error, 1)
	go func() {
		_, err := h.Run(ctx, pr, nil)
		done <- err
	}()
	if _, err := pw.Write([]byte(joinLines(regionLines(2)))); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Wait until both lines are processed and the job is back in Read,
	// past its cancellation check and blocked on the pipe.
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := svc.ImportStatus(h.ID())
		if err != nil {
			t.Fatalf("ImportStatus: %v", err)
		}
		if st.State == StateReading && st.Progress.Processed == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never blocked in Read: %+v", st)
		}
		time.Sleep(time.Millisecond)
	}

	// The first Shutdown cancels the job but times out waiting for the slot.
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := svc.Shutdown(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown = %v, want deadline exceeded", err)
	}
	pw.CloseWithError(io.ErrUnexpectedEOF)

	select {
	case err := <-done:
		if !errors.Is(err, ErrAborted) || !errors.Is(err, errShuttingDown) {
			t.Errorf("Run = %v, want abort by shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("import did not stop")
	}

	if err := svc.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown after drain = %v", err)
	}
}
