package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Histogram keeps the most recent duration samples, in milliseconds, in a
// fixed-size ring and reports percentiles over them.
type Histogram struct {
	mu      sync.RWMutex
	samples []float64
	next    int
	full    bool
}

// NewHistogram creates a histogram holding at most size samples.
func NewHistogram(size int) *Histogram {
	if size <= 0 {
		size = 1024
	}
	return &Histogram{samples: make([]float64, size)}
}

// Record adds a duration sample, overwriting the oldest one when full.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.next] = float64(d.Microseconds()) / 1000.0
	h.next++
	if h.next == len(h.samples) {
		h.next = 0
		h.full = true
	}
}

func (h *Histogram) values() []float64 {
	n := h.next
	if h.full {
		n = len(h.samples)
	}
	out := make([]float64, n)
	copy(out, h.samples[:n])
	return out
}

// Count returns the number of retained samples.
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.samples)
	}
	return h.next
}

// Percentile returns the interpolated value at p (0-100).
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.RLock()
	sorted := h.values()
	h.mu.RUnlock()

	return percentile(sorted, p)
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)

	index := (p / 100.0) * float64(len(values)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return values[lower]
	}

	fraction := index - float64(lower)
	return values[lower]*(1-fraction) + values[upper]*fraction
}

// Summary is a point-in-time view of a histogram.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	Max   float64 `json:"max_ms"`
}

// Summary computes count, mean, p50, p95 and max in one pass over a copy.
func (h *Histogram) Summary() Summary {
	h.mu.RLock()
	values := h.values()
	h.mu.RUnlock()

	if len(values) == 0 {
		return Summary{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	s := Summary{
		Count: len(values),
		Mean:  sum / float64(len(values)),
	}
	s.P50 = percentile(values, 50)
	s.P95 = percentile(values, 95)
	s.Max = values[len(values)-1]
	return s
}

// Reset drops every sample.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next = 0
	h.full = false
}
