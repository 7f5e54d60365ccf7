package distributor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

type scriptedPushable struct {
	failFor map[string]bool
}

func (s *scriptedPushable) UpdatePolicy(_ context.Context, inst core.Instance, _, _ string) error {
	if s.failFor[inst.ID] {
		return errors.New("push rejected")
	}
	return nil
}

func healthyInstances(n int) []core.Instance {
	out := make([]core.Instance, n)
	for i := range out {
		out[i] = core.Instance{ID: fmt.Sprintf("inst-%d", i), Endpoint: core.Endpoint{Host: "10.0.0.1", Port: 8080}}
		out[i].Status.Kind = core.StatusHealthy
	}
	return out
}

func newDispatcher(client Pushable) *Dispatcher {
	pusher := NewPusher(PushConfig{}, client)
	tracker := NewDeploymentTracker(0)
	health := NewHealthTracker(HealthConfig{HealthyThreshold: 1, UnhealthyThreshold: 1})
	return NewDispatcher(pusher, tracker, health)
}

// TestCanaryAbortsOnCanaryFailure covers a canary scenario: a fleet of 10
// under Canary{10%} (validation duration 0 here) where the single canary
// instance's push fails aborts before touching the remaining 9 instances.
func TestCanaryAbortsOnCanaryFailure(t *testing.T) {
	instances := healthyInstances(10)
	client := &scriptedPushable{failFor: map[string]bool{"inst-0": true}}
	d := newDispatcher(client)

	strategy := core.Canary(10, 0, false, 0)
	dep, err := d.Deploy(context.Background(), "checkout-api", "v2.0.0", instances, strategy)
	require.NoError(t, err)

	assert.Equal(t, 0, dep.Successful)
	assert.Equal(t, 1, dep.Failed)
	assert.Equal(t, core.DeploymentFailed, dep.State)
}

func TestCanaryProceedsToRemainderOnSuccess(t *testing.T) {
	instances := healthyInstances(10)
	client := &scriptedPushable{}
	d := newDispatcher(client)

	strategy := core.Canary(10, 0, false, 0)
	dep, err := d.Deploy(context.Background(), "checkout-api", "v2.0.0", instances, strategy)
	require.NoError(t, err)

	assert.Equal(t, 10, dep.Successful)
	assert.Equal(t, 0, dep.Failed)
	assert.Equal(t, core.DeploymentCompleted, dep.State)
}

// TestRollingStopsAfterFailingBatch covers a rolling scenario: a fleet of
// 6 under Rolling{batch=2} where batch 1 succeeds and batch 2's
// second instance fails stops before batch 3 ever starts.
func TestRollingStopsAfterFailingBatch(t *testing.T) {
	instances := healthyInstances(6)
	client := &scriptedPushable{failFor: map[string]bool{"inst-3": true}}
	d := newDispatcher(client)

	strategy := core.Rolling(2, 0, false, 0)
	dep, err := d.Deploy(context.Background(), "checkout-api", "v2.0.0", instances, strategy)
	require.NoError(t, err)

	assert.Equal(t, 3, dep.Successful)
	assert.Equal(t, 1, dep.Failed)
	assert.Equal(t, core.DeploymentFailed, dep.State)
	assert.Len(t, dep.InstanceStatus, 4, "only the first two batches should have been attempted")
}

func TestRollingCompletesAllBatchesOnSuccess(t *testing.T) {
	instances := healthyInstances(6)
	client := &scriptedPushable{}
	d := newDispatcher(client)

	strategy := core.Rolling(2, time.Millisecond, false, 0)
	dep, err := d.Deploy(context.Background(), "checkout-api", "v2.0.0", instances, strategy)
	require.NoError(t, err)

	assert.Equal(t, 6, dep.Successful)
	assert.Equal(t, core.DeploymentCompleted, dep.State)
}

func TestImmediateDeploysToEveryInstance(t *testing.T) {
	instances := healthyInstances(4)
	client := &scriptedPushable{}
	d := newDispatcher(client)

	dep, err := d.Deploy(context.Background(), "checkout-api", "v2.0.0", instances, core.Immediate())
	require.NoError(t, err)

	assert.Equal(t, 4, dep.Successful)
	assert.Equal(t, core.DeploymentCompleted, dep.State)
}

func TestDeployRejectsEmptyFleet(t *testing.T) {
	d := newDispatcher(&scriptedPushable{})
	_, err := d.Deploy(context.Background(), "checkout-api", "v2.0.0", nil, core.Immediate())
	assert.ErrorIs(t, err, ErrNoInstancesFound)
}
