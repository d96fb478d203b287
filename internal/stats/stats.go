package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	failed     bool
}

// Snapshot is a point-in-time aggregate of latency samples for one operation.
type Snapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Window tracks recent call latencies within a rolling window.
type Window struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (w *Window) Record(d time.Duration, err error) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.samples = append(w.samples, sample{
		timestamp:  now,
		durationMs: ms,
		failed:     err != nil,
	})
}

func (w *Window) Snapshot() Snapshot {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	if len(w.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(w.samples))
	var sum int64
	var failed int
	for _, sm := range w.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			failed++
		}
	}
	slices.Sort(values)

	return Snapshot{
		Count:  len(values),
		Errors: failed,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
	}
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	writeIdx := 0
	for _, sm := range w.samples {
		if !sm.timestamp.Before(cutoff) {
			w.samples[writeIdx] = sm
			writeIdx++
		}
	}
	w.samples = w.samples[:writeIdx]
}

// Registry holds one Window per named operation (summarize, quiz, youtube).
type Registry struct {
	mu      sync.Mutex
	maxAge  time.Duration
	windows map[string]*Window
}

func NewRegistry(maxAge time.Duration) *Registry {
	return &Registry{
		maxAge:  maxAge,
		windows: make(map[string]*Window),
	}
}

func (r *Registry) window(op string) *Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[op]
	if !ok {
		w = NewWindow(r.maxAge)
		r.windows[op] = w
	}
	return w
}

// Record adds one sample for op.
func (r *Registry) Record(op string, d time.Duration, err error) {
	r.window(op).Record(d, err)
}

// Observe runs fn and records its latency and outcome under op.
func (r *Registry) Observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.Record(op, time.Since(start), err)
	return err
}

// Snapshot returns the current aggregate for every operation seen so far.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.Lock()
	ops := make(map[string]*Window, len(r.windows))
	for k, v := range r.windows {
		ops[k] = v
	}
	r.mu.Unlock()

	out := make(map[string]Snapshot, len(ops))
	for k, w := range ops {
		out[k] = w.Snapshot()
	}
	return out
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
