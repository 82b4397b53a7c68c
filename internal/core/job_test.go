package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func runJob(t *testing.T, ctx context.Context, ins Inserter, input io.Reader, opts JobOptions) (*eventRecorder, *ImportResult, error) {
	t.Helper()
	src, err := OpenSource(input, SourceOptions{FileName: opts.FileName})
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()

	rec := &eventRecorder{}
	res, err := NewJob("job-1", regionSchema(), ins, opts).Run(ctx, src, rec)
	return rec, res, err
}

func TestJob_RegionExample(t *testing.T) {
	ins := &fakeInserter{}
	input := "1|ASIA|comment\nabc|ASIA|comment\n"
	rec, res, err := runJob(t, context.Background(), ins, strings.NewReader(input), JobOptions{FileName: "region.tbl"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.TotalRows != 2 || res.ImportedRows != 1 || res.FailedRows != 1 {
		t.Errorf("result = %+v", res)
	}
	if !res.Success {
		t.Error("Success = false, want true with one imported row")
	}
	if len(res.Errors) != 1 || res.Errors[0].Line != 2 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Reason, "non-negative integer") {
		t.Errorf("reason = %q", res.Errors[0].Reason)
	}
	if got := ins.rows; len(got) != 1 || strings.Join(got[0], ",") != "1,ASIA,comment" {
		t.Errorf("inserted %q", got)
	}

	events := rec.all()
	if events[0].Type != EventFileInfo {
		t.Errorf("first event = %s, want fileInfo", events[0].Type)
	}
	if last := events[len(events)-1]; last.Type != EventComplete {
		t.Errorf("last event = %s, want complete", last.Type)
	}
	if res.FileHash == "" || res.BytesRead != int64(len(input)) {
		t.Errorf("FileHash=%q BytesRead=%d", res.FileHash, res.BytesRead)
	}
}

func TestJob_LineNumbersArePhysical(t *testing.T) {
	input := "0|AFRICA|x\r\n\r\n   \n1||x\n\n2|ASIA|x|\n"
	_, res, err := runJob(t, context.Background(), &fakeInserter{}, strings.NewReader(input), JobOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3 (blank lines skipped)", res.TotalRows)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if res.Errors[0].Line != 4 || res.Errors[1].Line != 6 {
		t.Errorf("error lines = %d, %d, want 4 and 6", res.Errors[0].Line, res.Errors[1].Line)
	}
}

func TestJob_TrimTrailingDelimiter(t *testing.T) {
	input := "0|AFRICA|lar deposits|\n1|AMERICA||\n"
	_, res, err := runJob(t, context.Background(), &fakeInserter{}, strings.NewReader(input), JobOptions{TrimTrailingDelimiter: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ImportedRows != 2 || res.FailedRows != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestJob_TabDelimiterKeepsTabs(t *testing.T) {
	input := "0\tAFRICA\t\n"
	_, res, err := runJob(t, context.Background(), &fakeInserter{}, strings.NewReader(input), JobOptions{Delimiter: "\t"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ImportedRows != 1 {
		t.Errorf("trailing tab delimiter was trimmed: %+v", res)
	}
}

func TestJob_ProgressIsMonotonic(t *testing.T) {
	lines := regionLines(2500)
	for i := 0; i < len(lines); i += 97 {
		lines[i] = "bad|" + lines[i]
	}
	ins := &fakeInserter{failKeys: map[string]bool{"1200": true}}
	opts := JobOptions{BatchSize: 300, ProgressEvery: 250, ChunkSize: 777}

	rec, res, err := runJob(t, context.Background(), ins, strings.NewReader(joinLines(lines)), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	progress := rec.ofType(EventProgress)
	if len(progress) != 10 {
		t.Errorf("got %d progress events, want 10", len(progress))
	}
	var prev ImportProgress
	for i, ev := range progress {
		p := ev.Data.(ImportProgress)
		if p.Processed < prev.Processed || p.Imported < prev.Imported || p.Failed < prev.Failed {
			t.Fatalf("snapshot %d went backwards: %+v after %+v", i, p, prev)
		}
		if p.Processed != (i+1)*250 {
			t.Errorf("snapshot %d processed = %d", i, p.Processed)
		}
		if len(p.Errors) > DefaultRecentErrors {
			t.Errorf("snapshot %d carries %d errors", i, len(p.Errors))
		}
		prev = p
	}

	if res.TotalRows != 2500 {
		t.Errorf("TotalRows = %d, want 2500", res.TotalRows)
	}
	if res.TotalRows != res.ImportedRows+res.FailedRows {
		t.Errorf("TotalRows %d != imported %d + failed %d", res.TotalRows, res.ImportedRows, res.FailedRows)
	}
	if want := 2500 - 26 - 1; res.ImportedRows != want {
		t.Errorf("ImportedRows = %d, want %d", res.ImportedRows, want)
	}
}

func TestJob_DuplicateRows(t *testing.T) {
	ins := &fakeInserter{dupKeys: map[string]bool{"3": true}}
	_, res, err := runJob(t, context.Background(), ins, strings.NewReader(joinLines(regionLines(5))), JobOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ImportedRows != 5 || res.DuplicateRows != 1 {
		t.Errorf("ImportedRows=%d DuplicateRows=%d", res.ImportedRows, res.DuplicateRows)
	}
}

func TestJob_CancelEmitsAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flushes := 0
	ins := &fakeInserter{}
	ins.onBulk = func() {
		flushes++
		if flushes == 2 {
			cancel()
		}
	}

	opts := JobOptions{BatchSize: 10, ChunkSize: 64}
	rec, res, err := runJob(t, ctx, ins, strings.NewReader(joinLines(regionLines(100))), opts)
	if !errors.Is(err, ErrAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrAborted wrapping context.Canceled", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}

	events := rec.all()
	last := events[len(events)-1]
	if last.Type != EventAborted {
		t.Fatalf("last event = %s, want aborted", last.Type)
	}
	if len(rec.ofType(EventComplete)) != 0 || len(rec.ofType(EventError)) != 0 {
		t.Error("aborted job also emitted complete or error")
	}
	info := last.Data.(AbortInfo)
	if info.Imported != 10 {
		t.Errorf("aborted after %d imported, want 10", info.Imported)
	}
	if ins.count() != 10 {
		t.Errorf("stored %d rows, want 10", ins.count())
	}
}

func TestJob_CancelDuringReplayCountsCommittedRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ins := &fakeInserter{failBulk: errFakeBulk}
	singles := 0
	ins.onSingle = func() {
		singles++
		if singles == 5 {
			cancel()
		}
	}

	opts := JobOptions{BatchSize: 10, ChunkSize: 64}
	rec, _, err := runJob(t, ctx, ins, strings.NewReader(joinLines(regionLines(100))), opts)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}

	aborted := rec.ofType(EventAborted)
	if len(aborted) != 1 {
		t.Fatalf("got %d aborted events", len(aborted))
	}
	info := aborted[0].Data.(AbortInfo)
	if ins.count() != 4 {
		t.Fatalf("stored %d rows, want 4", ins.count())
	}
	if info.Imported != ins.count() {
		t.Errorf("aborted reports %d imported, store holds %d", info.Imported, ins.count())
	}
}

func TestJob_ProgressCarriesPercent(t *testing.T) {
	input := joinLines(regionLines(40))
	src, err := OpenSource(strings.NewReader(input), SourceOptions{Size: int64(len(input))})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	rec := &eventRecorder{}
	opts := JobOptions{ProgressEvery: 10, ChunkSize: 64}
	if _, err := NewJob("j", regionSchema(), &fakeInserter{}, opts).Run(context.Background(), src, rec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	progress := rec.ofType(EventProgress)
	if len(progress) == 0 {
		t.Fatal("no progress events")
	}
	prev := 0
	for i, ev := range progress {
		p := ev.Data.(ImportProgress)
		if p.Percent < prev || p.Percent > 100 {
			t.Errorf("snapshot %d percent = %d after %d", i, p.Percent, prev)
		}
		prev = p.Percent
	}
	if prev == 0 {
		t.Error("percent never advanced")
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestJob_TransportErrorEmitsOneError(t *testing.T) {
	transport := errors.New("connection reset by peer")
	input := &failingReader{data: []byte("0|AFRICA|x\n1|AMER"), err: transport}

	rec, res, err := runJob(t, context.Background(), &fakeInserter{}, input, JobOptions{})
	if !errors.Is(err, transport) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}

	var terminal []Event
	for _, ev := range rec.all() {
		if ev.Terminal() {
			terminal = append(terminal, ev)
		}
	}
	if len(terminal) != 1 || terminal[0].Type != EventError {
		t.Fatalf("terminal events = %+v, want exactly one error", terminal)
	}
	if info := terminal[0].Data.(ErrorInfo); info.Code != "DB005" {
		t.Errorf("error code = %q, want DB005", info.Code)
	}
}

func TestJob_StateCompleted(t *testing.T) {
	src, _ := OpenSource(strings.NewReader("0|AFRICA|x\n"), SourceOptions{})
	job := NewJob("j", regionSchema(), &fakeInserter{}, JobOptions{})
	if job.State() != StateIdle {
		t.Errorf("initial state = %s", job.State())
	}
	if _, err := job.Run(context.Background(), src, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.State() != StateCompleted {
		t.Errorf("final state = %s, want completed", job.State())
	}
}

func TestValidateDelimiter(t *testing.T) {
	for _, d := range []string{"|", ",", "\t", "::"} {
		if err := ValidateDelimiter(d); err != nil {
			t.Errorf("ValidateDelimiter(%q) = %v", d, err)
		}
	}
	for _, d := range []string{"", "\n", "|\r"} {
		if err := ValidateDelimiter(d); !errors.Is(err, ErrInvalidDelimiter) {
			t.Errorf("ValidateDelimiter(%q) = %v, want ErrInvalidDelimiter", d, err)
		}
	}
}
