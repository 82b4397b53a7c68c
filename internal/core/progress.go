package core

// Outcome classifies a processed record.
type Outcome int

const (
	OutcomeImported Outcome = iota
	OutcomeFailed
)

// Default cadences.
const (
	DefaultProgressEvery = 1000
	DefaultRecentErrors  = 10
)

// ProgressReporter owns the running counters of one job. It is not safe for
// concurrent use; the job goroutine is its only writer and readers get
// copies through Snapshot.
type ProgressReporter struct {
	every  int
	recent int

	processed  int
	imported   int
	failed     int
	duplicates int
	errors     []ImportError
}

// NewProgressReporter reports every `every` processed lines with at most
// `recent` errors per snapshot.
func NewProgressReporter(every, recent int) *ProgressReporter {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	if recent <= 0 {
		recent = DefaultRecentErrors
	}
	return &ProgressReporter{every: every, recent: recent}
}

// Processed counts one non-blank line and reports whether the cumulative
// count just reached a multiple of the cadence.
func (p *ProgressReporter) Processed() bool {
	p.processed++
	return p.processed%p.every == 0
}

// Record applies the outcome of n rows. err is required for OutcomeFailed
// (n is then 1) and ignored otherwise.
func (p *ProgressReporter) Record(outcome Outcome, n int, err *ImportError) {
	switch outcome {
	case OutcomeImported:
		p.imported += n
	case OutcomeFailed:
		p.failed++
		if err != nil {
			p.errors = append(p.errors, *err)
		}
	}
}

// Duplicates counts rows the store accepted but skipped on conflict.
// They are already included in the imported count.
func (p *ProgressReporter) Duplicates(n int) {
	if n > 0 {
		p.duplicates += n
	}
}

// Snapshot returns a copy of the counters with the most recent errors.
func (p *ProgressReporter) Snapshot() ImportProgress {
	start := len(p.errors) - p.recent
	if start < 0 {
		start = 0
	}
	recent := make([]ImportError, len(p.errors)-start)
	copy(recent, p.errors[start:])

	return ImportProgress{
		Processed: p.processed,
		Imported:  p.imported,
		Failed:    p.failed,
		Errors:    recent,
	}
}

// Result returns the terminal accounting with the complete error list.
// Only meaningful after the final flush, when every processed row has been
// either imported or failed.
func (p *ProgressReporter) Result() ImportResult {
	errs := make([]ImportError, len(p.errors))
	copy(errs, p.errors)

	return ImportResult{
		TotalRows:     p.processed,
		ImportedRows:  p.imported,
		FailedRows:    p.failed,
		Errors:        errs,
		Success:       p.imported > 0,
		DuplicateRows: p.duplicates,
	}
}

// Errors returns the number of recorded errors.
func (p *ProgressReporter) Errors() int {
	return len(p.errors)
}
