package perception

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/atomic"
)

// passWindow is how many recent pass durations are kept for percentiles.
const passWindow = 256

// Stats summarizes pipeline activity.
type Stats struct {
	Processed int64
	Dropped   int64
	Errors    int64
	// MeanPass, P50Pass and P95Pass cover the most recent passes only.
	MeanPass time.Duration
	P50Pass  time.Duration
	P95Pass  time.Duration
}

type statsRecorder struct {
	processed atomic.Int64
	errors    atomic.Int64

	mu     sync.Mutex
	passes []float64
	next   int
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{passes: make([]float64, 0, passWindow)}
}

func (sr *statsRecorder) record(d time.Duration) {
	sr.processed.Inc()
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if len(sr.passes) < passWindow {
		sr.passes = append(sr.passes, float64(d))
		return
	}
	sr.passes[sr.next] = float64(d)
	sr.next = (sr.next + 1) % passWindow
}

func (sr *statsRecorder) snapshot(dropped int64) Stats {
	out := Stats{
		Processed: sr.processed.Load(),
		Dropped:   dropped,
		Errors:    sr.errors.Load(),
	}
	sr.mu.Lock()
	data := append(stats.Float64Data(nil), sr.passes...)
	sr.mu.Unlock()
	if len(data) == 0 {
		return out
	}
	// errors only come from empty input, checked above
	mean, _ := stats.Mean(data)
	p50, _ := stats.Percentile(data, 50)
	p95, _ := stats.Percentile(data, 95)
	out.MeanPass = time.Duration(mean)
	out.P50Pass = time.Duration(p50)
	out.P95Pass = time.Duration(p95)
	return out
}
