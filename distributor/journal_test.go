package distributor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func testDeployment(id, service string, state core.DeploymentState, startedAt time.Time) *core.Deployment {
	ended := startedAt.Add(time.Minute)
	return &core.Deployment{
		ID: id, Service: service, TargetVersion: "1.0.0", State: state,
		Total: 3, Successful: 3, Failed: 0,
		StartedAt: startedAt, EndedAt: &ended,
	}
}

func TestOpenJournalRejectsEmptyPath(t *testing.T) {
	_, err := OpenJournal("")
	assert.Error(t, err)
}

func TestJournalRecordThenRecentForService(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, j.Record(ctx, testDeployment("dep-1", "checkout-api", core.DeploymentCompleted, base)))
	require.NoError(t, j.Record(ctx, testDeployment("dep-2", "checkout-api", core.DeploymentCompleted, base.Add(time.Hour))))
	require.NoError(t, j.Record(ctx, testDeployment("dep-3", "billing-api", core.DeploymentCompleted, base)))

	recent, err := j.RecentForService(ctx, "checkout-api", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "dep-2", recent[0].ID, "newest deployment should sort first")
	assert.Equal(t, "dep-1", recent[1].ID)
}

func TestJournalRecordUpsertsOnConflict(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	dep := testDeployment("dep-1", "checkout-api", core.DeploymentInProgress, base)
	require.NoError(t, j.Record(ctx, dep))

	dep.State = core.DeploymentFailed
	dep.Failed = 1
	dep.Successful = 2
	dep.Error = "canary aborted"
	require.NoError(t, j.Record(ctx, dep))

	recent, err := j.RecentForService(ctx, "checkout-api", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, core.DeploymentFailed, recent[0].State)
	assert.Equal(t, 1, recent[0].Failed)
	assert.Equal(t, "canary aborted", recent[0].Error)
}

func TestJournalRecentForServiceRespectsLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, testDeployment(
			"dep-"+string(rune('a'+i)), "checkout-api", core.DeploymentCompleted, base.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := j.RecentForService(ctx, "checkout-api", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
