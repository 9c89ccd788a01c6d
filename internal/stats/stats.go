// Package stats keeps a rolling window of split run measurements.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Run describes one completed split.
type Run struct {
	Duration  time.Duration
	InputLen  int
	Fragments int
	Overflows int
}

type sample struct {
	timestamp time.Time
	run       Run
}

// Snapshot is a point-in-time aggregate of recent runs.
type Snapshot struct {
	Count int     `json:"count"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`

	InputChars   int     `json:"input_chars"`
	Fragments    int     `json:"fragments"`
	Overflows    int     `json:"overflows"`
	AvgFragments float64 `json:"avg_fragments"`
}

// Recorder tracks split runs within a rolling window.
type Recorder struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewRecorder(maxAge time.Duration) *Recorder {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Recorder{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (r *Recorder) Record(run Run) {
	if run.Duration < 0 {
		run.Duration = 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.samples = append(r.samples, sample{timestamp: now, run: run})
}

func (r *Recorder) Snapshot() Snapshot {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	if len(r.samples) == 0 {
		return Snapshot{}
	}

	var snap Snapshot
	values := make([]float64, 0, len(r.samples))
	var sum float64
	for _, sm := range r.samples {
		ms := float64(sm.run.Duration) / float64(time.Millisecond)
		values = append(values, ms)
		sum += ms
		snap.InputChars += sm.run.InputLen
		snap.Fragments += sm.run.Fragments
		snap.Overflows += sm.run.Overflows
	}
	sort.Float64s(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = sum / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	snap.AvgFragments = float64(snap.Fragments) / float64(snap.Count)
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.maxAge)
	writeIdx := 0
	for _, sm := range r.samples {
		if !sm.timestamp.Before(cutoff) {
			r.samples[writeIdx] = sm
			writeIdx++
		}
	}
	r.samples = r.samples[:writeIdx]
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}
