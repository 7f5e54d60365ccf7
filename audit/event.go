// Package audit defines the event model and logger contract for Eunomia's
// audit trail. Backend implementations (a durable sink, a SIEM forwarder,
// etc.) are out of scope here; only the interface and an in-memory/log
// reference backend are provided.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Severity orders audit events for threshold filtering.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// EventKind tags which sum-type variant an Event carries.
type EventKind int

const (
	EventPolicy EventKind = iota
	EventBundle
	EventDistribution
	EventAuthorization
)

// PolicyOutcome enumerates PolicyEvent outcomes.
type PolicyOutcome int

const (
	PolicyCreated PolicyOutcome = iota
	PolicyUpdated
	PolicyDeleted
	PolicyValidated
	PolicyTested
)

// BundleOutcome enumerates BundleEvent outcomes.
type BundleOutcome int

const (
	BundleCompiled BundleOutcome = iota
	BundleSigned
	BundlePublished
	BundleFetched
	BundleVerified
)

// DistributionOutcome enumerates DistributionEvent outcomes.
type DistributionOutcome int

const (
	DistributionDeploymentStarted DistributionOutcome = iota
	DistributionDeploymentCompleted
	DistributionDeploymentFailed
	DistributionRollbackStarted
	DistributionRollbackCompleted
	DistributionHealthCheck
)

// AuthorizationOutcome enumerates AuthorizationEvent outcomes.
type AuthorizationOutcome int

const (
	AuthorizationAllowed AuthorizationOutcome = iota
	AuthorizationDenied
)

// Event is one audit record: every event carries an id, timestamp,
// severity, and an event-type-specific outcome plus fields.
type Event struct {
	ID            string
	Timestamp     time.Time
	Severity      Severity
	Kind          EventKind
	CorrelationID string

	Policy        *PolicyEvent
	Bundle        *BundleEvent
	Distribution  *DistributionEvent
	Authorization *AuthorizationEvent
}

// PolicyEvent carries fields specific to a compiler-side lifecycle event.
type PolicyEvent struct {
	Outcome PolicyOutcome
	Package string
	Service string
}

// BundleEvent carries fields specific to a bundle lifecycle event.
type BundleEvent struct {
	Outcome  BundleOutcome
	Service  string
	Version  string
	Checksum string
}

// DistributionEvent carries fields specific to a rollout lifecycle event.
type DistributionEvent struct {
	Outcome      DistributionOutcome
	Service      string
	Version      string
	DeploymentID string
	InstanceID   string
}

// AuthorizationEvent carries fields specific to an enforcer decision.
type AuthorizationEvent struct {
	Outcome     AuthorizationOutcome
	Service     string
	OperationID string
	PolicyID    string
}

func newEvent(kind EventKind, severity Severity, correlationID string) Event {
	id, err := uuid.NewV7()
	idStr := ""
	if err == nil {
		idStr = id.String()
	} else {
		idStr = uuid.New().String()
	}
	return Event{
		ID:            idStr,
		Timestamp:     time.Now().UTC(),
		Severity:      severity,
		Kind:          kind,
		CorrelationID: correlationID,
	}
}

// NewPolicyEvent builds a policy lifecycle event.
func NewPolicyEvent(severity Severity, correlationID string, e PolicyEvent) Event {
	ev := newEvent(EventPolicy, severity, correlationID)
	ev.Policy = &e
	return ev
}

// NewBundleEvent builds a bundle lifecycle event.
func NewBundleEvent(severity Severity, correlationID string, e BundleEvent) Event {
	ev := newEvent(EventBundle, severity, correlationID)
	ev.Bundle = &e
	return ev
}

// NewDistributionEvent builds a distribution lifecycle event.
func NewDistributionEvent(severity Severity, correlationID string, e DistributionEvent) Event {
	ev := newEvent(EventDistribution, severity, correlationID)
	ev.Distribution = &e
	return ev
}

// NewAuthorizationEvent builds an authorization decision event.
func NewAuthorizationEvent(severity Severity, correlationID string, e AuthorizationEvent) Event {
	ev := newEvent(EventAuthorization, severity, correlationID)
	ev.Authorization = &e
	return ev
}
