package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyMicros = 1
	maxLatencyMicros = 60_000_000
	sigFigs          = 3
)

// RouteStats summarizes the latency of one route.
type RouteStats struct {
	Route  string  `json:"route"`
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
}

type route struct {
	hist   *hdrhistogram.Histogram
	errors int64
}

// Registry keeps one latency histogram per route template.
type Registry struct {
	mu     sync.Mutex
	routes map[string]*route
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]*route)}
}

// Observe records one request. Statuses of 500 and above count as errors.
func (r *Registry) Observe(name string, d time.Duration, status int) {
	us := d.Microseconds()
	if us < minLatencyMicros {
		us = minLatencyMicros
	}
	if us > maxLatencyMicros {
		us = maxLatencyMicros
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.routes[name]
	if !ok {
		rt = &route{hist: hdrhistogram.New(minLatencyMicros, maxLatencyMicros, sigFigs)}
		r.routes[name] = rt
	}
	rt.hist.RecordValue(us)
	if status >= 500 {
		rt.errors++
	}
}

func millis(us int64) float64 {
	return float64(us) / 1000
}

// Snapshot returns stats for every observed route, sorted by name.
func (r *Registry) Snapshot() []RouteStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RouteStats, 0, len(r.routes))
	for name, rt := range r.routes {
		out = append(out, RouteStats{
			Route:  name,
			Count:  rt.hist.TotalCount(),
			Errors: rt.errors,
			P50Ms:  millis(rt.hist.ValueAtQuantile(50)),
			P95Ms:  millis(rt.hist.ValueAtQuantile(95)),
			P99Ms:  millis(rt.hist.ValueAtQuantile(99)),
			MaxMs:  millis(rt.hist.Max()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// Reset forgets every route.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = make(map[string]*route)
}
