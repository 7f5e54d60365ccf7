// Package distributor drives policy bundle rollouts to a fleet of enforcer
// instances: discovery, pushing, strategy-driven dispatch, scheduling, and
// deployment/health tracking.
package distributor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrQueueFull is returned when the scheduler's bounded queue has no room
// for another entry.
var ErrQueueFull = errors.New("distributor: scheduler queue is full")

// ErrDeploymentNotFound is returned when an operation names a deployment id
// the tracker has never seen.
var ErrDeploymentNotFound = errors.New("distributor: deployment not found")

// ErrStateError is returned when an operation attempts an illegal state
// transition, e.g. cancelling an already-terminal deployment.
var ErrStateError = errors.New("distributor: illegal state transition")

// ErrNoInstancesFound is returned when a deployment targets zero instances.
var ErrNoInstancesFound = errors.New("distributor: no instances found")

// DeploymentInProgressError reports that service already has a non-terminal
// deployment.
type DeploymentInProgressError struct {
	Service    string
	ExistingID string
}

func (e *DeploymentInProgressError) Error() string {
	return fmt.Sprintf("distributor: deployment already in progress for %s (id %s)", e.Service, e.ExistingID)
}

// InstanceUnreachableError reports a push attempted against an instance
// already known to be Unreachable.
type InstanceUnreachableError struct {
	ID       string
	Endpoint string
	Reason   string
}

func (e *InstanceUnreachableError) Error() string {
	return fmt.Sprintf("distributor: instance %s (%s) unreachable: %s", e.ID, e.Endpoint, e.Reason)
}
