// Package metrics records call latency per endpoint in HDR histograms.
package metrics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

const (
	// latencies are recorded in microseconds between 1us and 60s
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigures   = 3
)

// Recorder is a post-receive hook collecting latency and outcome per
// endpoint. It is safe for concurrent use.
type Recorder struct {
	mu        sync.RWMutex
	endpoints map[string]*endpointMetrics
}

type endpointMetrics struct {
	total     atomic.Int64
	errors    atomic.Int64
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{endpoints: make(map[string]*endpointMetrics)}
}

func (r *Recorder) ID() string { return "metrics" }

// OnPostReceive implements http.PostReceiveHook
func (r *Recorder) OnPostReceive(_ context.Context, call *hithttp.Call) error {
	r.Record(Key(call), call.Response.Duration, !call.Response.Success())
	return nil
}

// Key names the endpoint a call belongs to: method, host and path template
func Key(call *hithttp.Call) string {
	host := ""
	if call.Request != nil {
		host = call.Request.URL.Host
	}
	return EndpointKey(call.Config.Method, host, call.Config.Path)
}

// EndpointKey builds a key from its parts, for calls that never got a response
func EndpointKey(method, host, path string) string {
	return method + " " + host + "/" + trimSlash(path)
}

func trimSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}

// Record adds one observation
func (r *Recorder) Record(key string, d time.Duration, failed bool) {
	em := r.endpoint(key)
	em.total.Add(1)
	if failed {
		em.errors.Add(1)
	}

	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	em.mu.Lock()
	_ = em.histogram.RecordValue(us)
	em.mu.Unlock()
}

// RecordFailure counts a call that produced no response
func (r *Recorder) RecordFailure(key string) {
	em := r.endpoint(key)
	em.total.Add(1)
	em.errors.Add(1)
}

func (r *Recorder) endpoint(key string) *endpointMetrics {
	r.mu.RLock()
	em, ok := r.endpoints[key]
	r.mu.RUnlock()
	if ok {
		return em
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if em, ok = r.endpoints[key]; !ok {
		em = &endpointMetrics{histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigures)}
		r.endpoints[key] = em
	}
	return em
}

// Stats summarizes one endpoint
type Stats struct {
	Endpoint  string
	Count     int64
	Errors    int64
	ErrorRate float64
	Min       time.Duration
	Mean      time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration

	// Observed counts the calls that produced a latency
	Observed int64
}

// Snapshot returns the stats of every endpoint, ordered by endpoint
func (r *Recorder) Snapshot() []Stats {
	r.mu.RLock()
	keys := make([]string, 0, len(r.endpoints))
	for k := range r.endpoints {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	out := make([]Stats, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.stats(k))
	}
	return out
}

// Stats returns the summary for one endpoint
func (r *Recorder) Stats(key string) (Stats, bool) {
	r.mu.RLock()
	_, ok := r.endpoints[key]
	r.mu.RUnlock()
	if !ok {
		return Stats{}, false
	}
	return r.stats(key), true
}

func (r *Recorder) stats(key string) Stats {
	em := r.endpoint(key)

	s := Stats{
		Endpoint: key,
		Count:    em.total.Load(),
		Errors:   em.errors.Load(),
	}
	if s.Count > 0 {
		s.ErrorRate = float64(s.Errors) / float64(s.Count)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	h := em.histogram
	if h.TotalCount() == 0 {
		return s
	}
	s.Observed = h.TotalCount()
	s.Min = usDuration(h.Min())
	s.Mean = time.Duration(h.Mean() * float64(time.Microsecond))
	s.P50 = usDuration(h.ValueAtQuantile(50))
	s.P95 = usDuration(h.ValueAtQuantile(95))
	s.P99 = usDuration(h.ValueAtQuantile(99))
	s.Max = usDuration(h.Max())
	return s
}

func usDuration(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// Reset drops everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = make(map[string]*endpointMetrics)
}
