package distributor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eunomia-project/eunomia/core"
)

// DefaultHistoryLimit bounds how many terminal deployments a tracker keeps.
const DefaultHistoryLimit = 100

// DeploymentTracker is the distributor's deployment state machine, guarded
// by a single reader-writer lock: writers take it during state mutation,
// readers (status queries, listing) take a read lock.
type DeploymentTracker struct {
	historyLimit int

	mu          sync.RWMutex
	deployments map[string]*core.Deployment
	byService   map[string]string // service -> non-terminal deployment id
	order       []string          // insertion order, for bounded-history pruning
}

// NewDeploymentTracker builds an empty tracker with the given history
// limit; historyLimit <= 0 uses DefaultHistoryLimit.
func NewDeploymentTracker(historyLimit int) *DeploymentTracker {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &DeploymentTracker{
		historyLimit: historyLimit,
		deployments:  map[string]*core.Deployment{},
		byService:    map[string]string{},
	}
}

// StartDeployment begins tracking a new deployment for service at version
// targeting total instances. It fails with DeploymentInProgressError if a
// non-terminal deployment already exists for service.
func (t *DeploymentTracker) StartDeployment(service, version string, total int) (*core.Deployment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byService[service]; ok {
		return nil, &DeploymentInProgressError{Service: service, ExistingID: existing}
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	d := &core.Deployment{
		ID:             id.String(),
		Service:        service,
		TargetVersion:  version,
		State:          core.DeploymentInProgress,
		Total:          total,
		InstanceStatus: map[string]core.InstanceResult{},
		StartedAt:      time.Now().UTC(),
	}
	t.deployments[d.ID] = d
	t.byService[service] = d.ID
	t.order = append(t.order, d.ID)
	return cloneDeployment(d), nil
}

// UpdateInstance records the outcome of pushing to instance within
// deployment id, bumping the success/fail counters. A duplicate key is
// idempotent only in timing — the latest call for a given instance wins.
func (t *DeploymentTracker) UpdateInstance(id, instanceID string, success bool, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.deployments[id]
	if !ok {
		return ErrDeploymentNotFound
	}
	if prev, existed := d.InstanceStatus[instanceID]; existed {
		if prev.Success {
			d.Successful--
		} else {
			d.Failed--
		}
	}
	d.InstanceStatus[instanceID] = core.InstanceResult{Success: success, Error: errMsg}
	if success {
		d.Successful++
	} else {
		d.Failed++
	}
	return nil
}

// CompleteDeployment transitions id to Completed (ok=true) or Failed
// (ok=false), setting EndedAt and pruning the bounded history.
func (t *DeploymentTracker) CompleteDeployment(id string, ok bool, errMsg string) error {
	return t.finish(id, func(d *core.Deployment) {
		if ok {
			d.State = core.DeploymentCompleted
		} else {
			d.State = core.DeploymentFailed
			d.Error = errMsg
		}
	})
}

// FailDeployment transitions id directly to Failed with errMsg.
func (t *DeploymentTracker) FailDeployment(id, errMsg string) error {
	return t.finish(id, func(d *core.Deployment) {
		d.State = core.DeploymentFailed
		d.Error = errMsg
	})
}

// CancelDeployment transitions id to Cancelled. Cancelling an
// already-terminal deployment fails with ErrStateError.
func (t *DeploymentTracker) CancelDeployment(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.deployments[id]
	if !ok {
		return ErrDeploymentNotFound
	}
	if d.State.IsTerminal() {
		return ErrStateError
	}
	d.State = core.DeploymentCancelled
	t.finalize(d)
	return nil
}

func (t *DeploymentTracker) finish(id string, mutate func(*core.Deployment)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.deployments[id]
	if !ok {
		return ErrDeploymentNotFound
	}
	if d.State.IsTerminal() {
		return ErrStateError
	}
	mutate(d)
	t.finalize(d)
	return nil
}

// finalize marks d's end time, releases its service lock, and enforces the
// bounded terminal history. Callers must hold t.mu.
func (t *DeploymentTracker) finalize(d *core.Deployment) {
	now := time.Now().UTC()
	d.EndedAt = &now
	if t.byService[d.Service] == d.ID {
		delete(t.byService, d.Service)
	}
	t.pruneHistory()
}

// pruneHistory drops the oldest terminal deployments, in insertion order,
// until at most historyLimit terminal deployments remain. Non-terminal
// deployments are never pruned. Callers must hold t.mu.
func (t *DeploymentTracker) pruneHistory() {
	terminalCount := 0
	for _, id := range t.order {
		if d, ok := t.deployments[id]; ok && d.State.IsTerminal() {
			terminalCount++
		}
	}
	if terminalCount <= t.historyLimit {
		return
	}

	var kept []string
	toDrop := terminalCount - t.historyLimit
	for _, id := range t.order {
		d, ok := t.deployments[id]
		if ok && d.State.IsTerminal() && toDrop > 0 {
			delete(t.deployments, id)
			toDrop--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// Get returns a copy of the tracked deployment for id.
func (t *DeploymentTracker) Get(id string) (*core.Deployment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.deployments[id]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	return cloneDeployment(d), nil
}

// ActiveForService returns the non-terminal deployment tracked for service,
// if any.
func (t *DeploymentTracker) ActiveForService(service string) (*core.Deployment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byService[service]
	if !ok {
		return nil, false
	}
	return cloneDeployment(t.deployments[id]), true
}

// List returns copies of every tracked deployment, oldest first.
func (t *DeploymentTracker) List() []*core.Deployment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*core.Deployment, 0, len(t.order))
	for _, id := range t.order {
		if d, ok := t.deployments[id]; ok {
			out = append(out, cloneDeployment(d))
		}
	}
	return out
}

func cloneDeployment(d *core.Deployment) *core.Deployment {
	out := *d
	out.InstanceStatus = make(map[string]core.InstanceResult, len(d.InstanceStatus))
	for k, v := range d.InstanceStatus {
		out.InstanceStatus[k] = v
	}
	if d.EndedAt != nil {
		ended := *d.EndedAt
		out.EndedAt = &ended
	}
	return &out
}
