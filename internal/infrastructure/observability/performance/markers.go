// Package performance provides performance monitoring data structures and utilities
// for tracking collector operations per tenant.
package performance

import (
	"time"
)

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation string         `json:"operation"`       // e.g., "track:event", "chat:reply"
	TenantID  string         `json:"tenantId"`        // Tenant identifier for multi-tenant isolation
	StartTime time.Time      `json:"startTime"`       // When the operation started
	EndTime   time.Time      `json:"endTime"`         // When the operation completed
	Duration  time.Duration  `json:"duration"`        // Total operation duration
	Success   bool           `json:"success"`         // Whether the operation completed successfully
	Error     string         `json:"error,omitempty"` // Error message if operation failed
	Metadata  map[string]any `json:"metadata"`
	Completed bool           `json:"completed"`

	tracker *Tracker
}

// Complete marks the operation as finished and reports it to the tracker
func (m *Marker) Complete() {
	if m.Completed {
		return
	}

	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true

	if m.tracker != nil {
		m.tracker.record(m)
	}
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.Success = success
}

// SetError sets an error message and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err != nil {
		m.Error = err.Error()
		m.Success = false
	}
}

// AddMetadata adds key-value metadata to the marker
func (m *Marker) AddMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// OperationStats aggregates completed markers for one operation
type OperationStats struct {
	Operation   string        `json:"operation"`
	Count       int           `json:"count"`
	Failures    int           `json:"failures"`
	Total       time.Duration `json:"total"`
	Max         time.Duration `json:"max"`
	Average     time.Duration `json:"average"`
	LastError   string        `json:"lastError,omitempty"`
	LastRunTime time.Time     `json:"lastRunTime"`
}

// HealthStatus represents the overall health of the collector
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"   // All operations performing within normal parameters
	HealthDegraded  HealthStatus = "degraded"  // Some operations showing performance issues
	HealthUnhealthy HealthStatus = "unhealthy" // Most operations failing
	HealthUnknown   HealthStatus = "unknown"   // Nothing measured yet
)

// Snapshot represents a point-in-time view of collector performance
type Snapshot struct {
	Timestamp     time.Time        `json:"timestamp"`
	TenantID      string           `json:"tenantId"`
	Uptime        time.Duration    `json:"uptime"`
	Operations    []OperationStats `json:"operations"`
	OverallHealth HealthStatus     `json:"overallHealth"`
}
