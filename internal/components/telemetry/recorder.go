package telemetry

import (
	"strings"
	"sync"
)

// Kind is the kind of report captured by a Recorder.
type Kind int

const (
	KindBroken Kind = iota
	KindWarning
	KindDebug
	KindCount
)

// Report is a single captured call.
type Report struct {
	Kind   Kind
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, meant for asserting
// that recovered errors were surfaced.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(Report{Kind: KindBroken, ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(Report{Kind: KindWarning, ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Kind: KindDebug, ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(Report{Kind: KindCount, ID: id, Count: count})
}

// Reports returns a copy of every report captured so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given kind whose id ends with suffix.
func (r *Recorder) Find(kind Kind, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Kind == kind && strings.HasSuffix(report.ID, suffix) {
			out = append(out, report)
		}
	}
	return out
}

// LastCount returns the most recent count reported for the id suffix.
func (r *Recorder) LastCount(suffix string) (int64, bool) {
	found := r.Find(KindCount, suffix)
	if len(found) == 0 {
		return 0, false
	}
	return found[len(found)-1].Count, true
}
