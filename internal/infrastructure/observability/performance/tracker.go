package performance

import (
	"sort"
	"sync"
	"time"
)

// Tracker aggregates completed markers by tenant and operation
type Tracker struct {
	stats   map[string]map[string]*OperationStats // tenantId -> operation -> stats
	slow    time.Duration
	mu      sync.RWMutex
	started time.Time
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	SlowThreshold time.Duration `json:"slowThreshold"` // Operations slower than this degrade health
}

// DefaultTrackerConfig returns sensible defaults for the tracker
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{SlowThreshold: 250 * time.Millisecond}
}

// NewTracker creates a new performance tracker
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		stats:   make(map[string]map[string]*OperationStats),
		slow:    config.SlowThreshold,
		started: time.Now(),
	}
}

// StartOperation begins tracking a new operation
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	return &Marker{
		Operation: operation,
		TenantID:  tenantID,
		StartTime: time.Now(),
		Success:   true, // Assume success until proven otherwise
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops, ok := t.stats[m.TenantID]
	if !ok {
		ops = make(map[string]*OperationStats)
		t.stats[m.TenantID] = ops
	}
	s, ok := ops[m.Operation]
	if !ok {
		s = &OperationStats{Operation: m.Operation}
		ops[m.Operation] = s
	}

	s.Count++
	s.Total += m.Duration
	s.Average = s.Total / time.Duration(s.Count)
	if m.Duration > s.Max {
		s.Max = m.Duration
	}
	if !m.Success {
		s.Failures++
		s.LastError = m.Error
	}
	s.LastRunTime = m.EndTime
}

// TakeSnapshot returns the aggregated stats for a tenant, operations sorted by name
func (t *Tracker) TakeSnapshot(tenantID string) *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &Snapshot{
		Timestamp: time.Now(),
		TenantID:  tenantID,
		Uptime:    time.Since(t.started),
	}
	for _, s := range t.stats[tenantID] {
		snap.Operations = append(snap.Operations, *s)
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Operation < snap.Operations[j].Operation
	})
	snap.OverallHealth = t.calculateHealth(snap.Operations)
	return snap
}

// calculateHealth determines overall health from failure rates and latency
func (t *Tracker) calculateHealth(ops []OperationStats) HealthStatus {
	total, failures, slow := 0, 0, 0
	for _, s := range ops {
		total += s.Count
		failures += s.Failures
		if s.Average > t.slow {
			slow++
		}
	}
	if total == 0 {
		return HealthUnknown
	}

	failureRate := float64(failures) / float64(total)
	switch {
	case failureRate > 0.5:
		return HealthUnhealthy
	case failureRate > 0.1 || slow > 0:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
