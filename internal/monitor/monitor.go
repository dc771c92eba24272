// Package monitor polls the health of external collaborators.
package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/intruscan/internal/model"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// Probe checks one collaborator. A nil error means healthy.
type Probe func(ctx context.Context) error

// Target is a named collaborator to watch.
type Target struct {
	Name  string
	Probe Probe
}

// Measure runs a probe with a timeout and records its latency.
func Measure(ctx context.Context, t Target) model.ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	start := time.Now()
	err := t.Probe(ctx)
	h := model.ServiceHealth{
		Name:      t.Name,
		Healthy:   err == nil,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
	if err != nil {
		h.Detail = err.Error()
	}
	return h
}

// Monitor keeps the last result of each target.
type Monitor struct {
	targets []Target

	mu   sync.RWMutex
	last map[string]model.ServiceHealth
}

// New creates a monitor for the given targets.
func New(targets ...Target) *Monitor {
	return &Monitor{targets: targets, last: make(map[string]model.ServiceHealth)}
}

// CheckAll probes every target once and stores the results.
func (m *Monitor) CheckAll(ctx context.Context) []model.ServiceHealth {
	results := make([]model.ServiceHealth, len(m.targets))

	var wg sync.WaitGroup
	for i, t := range m.targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			results[i] = Measure(ctx, t)
		}(i, t)
	}
	wg.Wait()

	m.mu.Lock()
	for _, h := range results {
		m.last[h.Name] = h
	}
	m.mu.Unlock()

	return results
}

// Snapshot returns the last known state of every target, sorted by name.
func (m *Monitor) Snapshot() []model.ServiceHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ServiceHealth, 0, len(m.last))
	for _, h := range m.last {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run checks immediately and then on every tick until ctx is done. The
// callback receives each result.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, callback func(model.ServiceHealth)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		for _, h := range m.CheckAll(ctx) {
			if callback != nil {
				callback(h)
			}
		}
	}

	check() // Run immediately
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
