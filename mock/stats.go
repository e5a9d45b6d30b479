// Package mock holds in-memory test doubles for lake interfaces.
package mock

import (
	"sync"
	"time"
)

// RecordingStatter is used for testing. It records counts and timings and
// is safe for concurrent use.
type RecordingStatter struct {
	mu      sync.Mutex
	counts  map[string]int64
	timings map[string]int
}

// Count implements Count.
func (r *RecordingStatter) Count(name string, value int64, rate float64, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int64)
	}
	r.counts[name] += value
}

// Counts returns a copy of the recorded counts.
func (r *RecordingStatter) Counts() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		ret[k] = v
	}
	return ret
}

// Timings returns how many timings were recorded under name.
func (r *RecordingStatter) Timings(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timings[name]
}

// Gauge implements Gauge.
func (r *RecordingStatter) Gauge(name string, value float64, rate float64, tags ...string) {}

// Histogram implements Histogram.
func (r *RecordingStatter) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set implements Set.
func (r *RecordingStatter) Set(name string, value string, rate float64, tags ...string) {}

// Timing implements Timing.
func (r *RecordingStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timings == nil {
		r.timings = make(map[string]int)
	}
	r.timings[name]++
}
