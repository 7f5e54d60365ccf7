// Package service defines the transport-independent control-plane and
// enforcer contracts Eunomia exposes, plus the local CLI status persistence
// format. Wire transport (gRPC or otherwise) is explicitly out of scope;
// these are the Go types a transport layer would marshal.
package service

import (
	"context"
	"time"

	"github.com/eunomia-project/eunomia/core"
)

// NotFoundError reports that a named resource (service, instance,
// deployment) does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return "service: not found: " + e.Resource }

// DeployRequest is the input to DeployPolicy.
type DeployRequest struct {
	Service        string
	Version        string
	Strategy       core.DeploymentStrategy
	InstanceFilter *InstanceFilter
	Reason         string
}

// RollbackRequest is the input to RollbackPolicy.
type RollbackRequest struct {
	Service        string
	TargetVersion  string
	InstanceFilter *InstanceFilter
	Reason         string
}

// InstanceFilter narrows a fleet-wide operation to a subset of instances.
type InstanceFilter struct {
	Namespace string
	Labels    map[string]string
	Health    *core.InstanceStatusKind
}

// DeployResult is the shared output shape of DeployPolicy and
// RollbackPolicy.
type DeployResult struct {
	DeploymentID   string
	State          core.DeploymentState
	InstanceStatus map[string]core.InstanceResult
}

// PolicyStatus is the output of GetPolicyStatus.
type PolicyStatus struct {
	Service         string
	CurrentVersion  string
	State           core.DeploymentState
	InstanceStatus  map[string]core.InstanceStatus
}

// InstanceHealth is the output of GetInstanceHealth.
type InstanceHealth struct {
	InstanceID string
	Health     core.InstanceStatusKind
	LastCheck  time.Time
	Message    string
}

// WatchEvent is one element of the stream GetInstanceHealth's sibling,
// WatchDeployment, yields.
type WatchEvent struct {
	EventType  string
	Timestamp  time.Time
	InstanceID string
	Message    string
}

// ControlPlane is the external interface a control plane exposes:
// deploy/rollback a policy, inspect status, list instances, and watch a
// deployment's progress.
type ControlPlane interface {
	DeployPolicy(ctx context.Context, req DeployRequest) (DeployResult, error)
	RollbackPolicy(ctx context.Context, req RollbackRequest) (DeployResult, error)
	GetPolicyStatus(ctx context.Context, service string) (PolicyStatus, error)
	ListInstances(ctx context.Context, serviceFilter string, healthFilter *core.InstanceStatusKind) ([]core.Instance, error)
	GetInstanceHealth(ctx context.Context, instanceID string) (InstanceHealth, error)
	WatchDeployment(ctx context.Context, deploymentID string) (<-chan WatchEvent, error)
}

// Enforcer mirrors the runtime side of the contract: the per-instance
// operations an enforcer exposes to the control plane.
type Enforcer interface {
	UpdatePolicy(ctx context.Context, service string, bundleBytes []byte, checksum string, force bool) error
	GetCurrentPolicy(ctx context.Context, service string) (*core.Bundle, error)
	HealthCheck(ctx context.Context, service string) (core.InstanceStatus, error)
}

// ErrChecksumMismatch is returned by an Enforcer.UpdatePolicy implementation
// when the supplied checksum does not match the decoded bundle, and force
// was not set.
type ErrChecksumMismatch struct {
	Expected string
	Actual   string
}

func (e *ErrChecksumMismatch) Error() string {
	return "service: checksum mismatch: expected " + e.Expected + ", got " + e.Actual
}
