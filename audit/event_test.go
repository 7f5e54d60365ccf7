package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBundleEventSetsKindAndTimestamp(t *testing.T) {
	ev := NewBundleEvent(SeverityInfo, "corr-1", BundleEvent{
		Outcome:  BundlePublished,
		Service:  "checkout-api",
		Version:  "1.2.0",
		Checksum: "sha256:deadbeef",
	})

	assert.Equal(t, EventBundle, ev.Kind)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, BundlePublished, ev.Bundle.Outcome)
	assert.Nil(t, ev.Policy)
	assert.Nil(t, ev.Distribution)
	assert.Nil(t, ev.Authorization)
}

func TestNewEventVariantsAreDistinct(t *testing.T) {
	policy := NewPolicyEvent(SeverityInfo, "", PolicyEvent{Outcome: PolicyCreated})
	dist := NewDistributionEvent(SeverityWarning, "", DistributionEvent{Outcome: DistributionDeploymentFailed})
	auth := NewAuthorizationEvent(SeverityCritical, "", AuthorizationEvent{Outcome: AuthorizationDenied})

	assert.Equal(t, EventPolicy, policy.Kind)
	assert.Equal(t, EventDistribution, dist.Kind)
	assert.Equal(t, EventAuthorization, auth.Kind)
	assert.NotEqual(t, policy.ID, dist.ID)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "critical", SeverityCritical.String())
}
