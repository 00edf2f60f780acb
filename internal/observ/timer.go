// Package observ measures how long the steps of a run take.
package observ

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// summaryLimit is the number of phases Summary lists before collapsing
// the rest into one line.
const summaryLimit = 10

// Phase records one step such as the module check or the plan of a file.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects phases. A nil *Timer ignores every call, so callers can
// leave timing off without branching. It is safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase and returns its handle for End.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase idx with an optional note.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].Dur = time.Since(t.phases[idx].Start)
	t.phases[idx].Note = note
}

// Measure runs fn as a phase; a returned error becomes the note.
func (t *Timer) Measure(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	if err != nil {
		t.End(idx, err.Error())
	} else {
		t.End(idx, "")
	}
	return err
}

// PhaseReport is the serializable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is a snapshot of every phase. TotalMS sums the phases; WallMS
// spans from the first start to the last end.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	WallMS  float64       `json:"wall_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns the phases in start order.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	var total time.Duration
	var first, last time.Time
	for i, p := range t.phases {
		total += p.Dur
		if i == 0 || p.Start.Before(first) {
			first = p.Start
		}
		if end := p.Start.Add(p.Dur); end.After(last) {
			last = end
		}
		r.Phases = append(r.Phases, PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note})
	}
	r.TotalMS = millis(total)
	if len(t.phases) > 0 {
		r.WallMS = millis(last.Sub(first))
	}
	return r
}

// Summary renders the report for a terminal. Long runs list only the
// slowest phases.
func (t *Timer) Summary() string {
	report := t.Report()
	phases := report.Phases
	hidden := 0
	if len(phases) > summaryLimit {
		phases = append([]PhaseReport(nil), phases...)
		sort.SliceStable(phases, func(i, j int) bool { return phases[i].DurationMS > phases[j].DurationMS })
		hidden = len(phases) - summaryLimit
		phases = phases[:summaryLimit]
	}
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range phases {
		fmt.Fprintf(&sb, "  %-30s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	if hidden > 0 {
		fmt.Fprintf(&sb, "  ... %d faster phases\n", hidden)
	}
	fmt.Fprintf(&sb, "  %-30s %9.2f ms\n", "total", report.TotalMS)
	fmt.Fprintf(&sb, "  %-30s %9.2f ms\n", "wall", report.WallMS)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
