package distributor

import (
	"sync"
	"time"

	"github.com/eunomia-project/eunomia/core"
)

// HealthCheck is one point-in-time health observation for an instance.
type HealthCheck struct {
	InstanceID string
	Status     core.InstanceStatusKind
	Version    string
	Message    string
	CheckedAt  time.Time
}

// HealthConfig configures a HealthTracker's thresholds.
type HealthConfig struct {
	HealthyThreshold   int
	UnhealthyThreshold int
	CheckInterval      time.Duration
}

// TryNewHealthConfig validates cfg, the authoritative fallible constructor.
func TryNewHealthConfig(cfg HealthConfig) (HealthConfig, error) {
	if cfg.HealthyThreshold <= 0 {
		cfg.HealthyThreshold = 1
	}
	if cfg.UnhealthyThreshold <= 0 {
		cfg.UnhealthyThreshold = 1
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	return cfg, nil
}

type healthRecord struct {
	state       core.InstanceStatusKind
	successes   int
	failures    int
	lastCheckAt time.Time
}

// HealthTracker maintains per-instance health state machines driven by
// successive HealthChecks.
type HealthTracker struct {
	cfg HealthConfig

	mu      sync.RWMutex
	records map[string]*healthRecord
}

// NewHealthTracker builds an empty HealthTracker.
func NewHealthTracker(cfg HealthConfig) *HealthTracker {
	return &HealthTracker{cfg: cfg, records: map[string]*healthRecord{}}
}

// Record applies check to the tracked state for its instance, advancing
// the consecutive success/failure counters and flipping state once a
// configured threshold is crossed.
func (t *HealthTracker) Record(check HealthCheck) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[check.InstanceID]
	if !ok {
		rec = &healthRecord{state: core.StatusUnknown}
		t.records[check.InstanceID] = rec
	}
	rec.lastCheckAt = check.CheckedAt

	switch check.Status {
	case core.StatusHealthy:
		rec.successes++
		rec.failures = 0
		if rec.successes >= t.cfg.HealthyThreshold {
			rec.state = core.StatusHealthy
		}
	case core.StatusDegraded:
		rec.successes = 0
		rec.state = core.StatusDegraded
	case core.StatusUnhealthy, core.StatusUnreachable:
		rec.failures++
		rec.successes = 0
		if rec.failures >= t.cfg.UnhealthyThreshold {
			rec.state = check.Status
		}
	case core.StatusUnknown:
		// counters unchanged
	}
}

// State returns the tracked state for instanceID, or StatusUnknown if no
// check has ever been recorded.
func (t *HealthTracker) State(instanceID string) core.InstanceStatusKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[instanceID]
	if !ok {
		return core.StatusUnknown
	}
	return rec.state
}

// IsCheckDue reports whether instanceID has never been checked, or its last
// check is at least CheckInterval old.
func (t *HealthTracker) IsCheckDue(instanceID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[instanceID]
	if !ok {
		return true
	}
	return time.Since(rec.lastCheckAt) >= t.cfg.CheckInterval
}
