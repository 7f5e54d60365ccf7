package distributor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

func TestStartDeploymentRejectsConcurrentDeployment(t *testing.T) {
	tr := NewDeploymentTracker(0)
	_, err := tr.StartDeployment("checkout-api", "v1.0.0", 3)
	require.NoError(t, err)

	_, err = tr.StartDeployment("checkout-api", "v1.1.0", 3)
	var inProgress *DeploymentInProgressError
	assert.ErrorAs(t, err, &inProgress)
}

func TestUpdateInstanceTracksCounters(t *testing.T) {
	tr := NewDeploymentTracker(0)
	d, err := tr.StartDeployment("checkout-api", "v1.0.0", 2)
	require.NoError(t, err)

	require.NoError(t, tr.UpdateInstance(d.ID, "inst-1", true, ""))
	require.NoError(t, tr.UpdateInstance(d.ID, "inst-2", false, "unreachable"))

	got, err := tr.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Successful)
	assert.Equal(t, 1, got.Failed)
}

func TestUpdateInstanceOverwriteAdjustsCounters(t *testing.T) {
	tr := NewDeploymentTracker(0)
	d, err := tr.StartDeployment("checkout-api", "v1.0.0", 1)
	require.NoError(t, err)

	require.NoError(t, tr.UpdateInstance(d.ID, "inst-1", false, "timeout"))
	require.NoError(t, tr.UpdateInstance(d.ID, "inst-1", true, ""))

	got, err := tr.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Successful)
	assert.Equal(t, 0, got.Failed)
}

func TestCompleteDeploymentReleasesServiceSlot(t *testing.T) {
	tr := NewDeploymentTracker(0)
	d, err := tr.StartDeployment("checkout-api", "v1.0.0", 1)
	require.NoError(t, err)

	require.NoError(t, tr.CompleteDeployment(d.ID, true, ""))

	_, ok := tr.ActiveForService("checkout-api")
	assert.False(t, ok)

	// A new deployment for the same service may now start.
	_, err = tr.StartDeployment("checkout-api", "v1.1.0", 1)
	assert.NoError(t, err)
}

func TestFinishTwiceFails(t *testing.T) {
	tr := NewDeploymentTracker(0)
	d, err := tr.StartDeployment("checkout-api", "v1.0.0", 1)
	require.NoError(t, err)
	require.NoError(t, tr.CompleteDeployment(d.ID, true, ""))

	err = tr.CompleteDeployment(d.ID, true, "")
	assert.ErrorIs(t, err, ErrStateError)

	err = tr.CancelDeployment(d.ID)
	assert.ErrorIs(t, err, ErrStateError)
}

func TestGetUnknownDeploymentFails(t *testing.T) {
	tr := NewDeploymentTracker(0)
	_, err := tr.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

// TestHistoryBoundedPruning covers bounded terminal history: only the most
// recent historyLimit terminal deployments survive, while a still-active
// deployment is never pruned.
func TestHistoryBoundedPruning(t *testing.T) {
	tr := NewDeploymentTracker(2)

	var ids []string
	for i := 0; i < 3; i++ {
		d, err := tr.StartDeployment("svc", "v1.0.0", 1)
		require.NoError(t, err)
		require.NoError(t, tr.CompleteDeployment(d.ID, true, ""))
		ids = append(ids, d.ID)
	}

	_, err := tr.Get(ids[0])
	assert.ErrorIs(t, err, ErrDeploymentNotFound, "oldest terminal deployment should have been pruned")

	_, err = tr.Get(ids[2])
	assert.NoError(t, err)

	assert.Len(t, tr.List(), 2)
}

func TestCloneDeploymentIsIndependent(t *testing.T) {
	tr := NewDeploymentTracker(0)
	d, err := tr.StartDeployment("checkout-api", "v1.0.0", 1)
	require.NoError(t, err)
	require.NoError(t, tr.UpdateInstance(d.ID, "inst-1", true, ""))

	got, err := tr.Get(d.ID)
	require.NoError(t, err)
	got.InstanceStatus["inst-1"] = core.InstanceResult{Success: false, Error: "mutated"}

	again, err := tr.Get(d.ID)
	require.NoError(t, err)
	assert.True(t, again.InstanceStatus["inst-1"].Success)
}
