package distributor

import (
	"context"
	"fmt"
	"time"

	"github.com/eunomia-project/eunomia/core"
)

// Pushable is the capability a Pusher needs from whatever actually talks to
// an enforcer instance: deliver a bundle version and report whether the
// instance accepted it. Production callers implement this over the
// transport of their choice; the contract itself is transport-independent.
type Pushable interface {
	UpdatePolicy(ctx context.Context, inst core.Instance, service, version string) error
}

// PushResult is the outcome of one Pusher.Push call.
type PushResult struct {
	InstanceID string
	Success    bool
	Duration   time.Duration
	Version    string
	Attempts   int
	Error      string
}

// PushConfig configures retry behaviour for a Pusher.
type PushConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// TryNewPushConfig validates cfg, the authoritative fallible constructor.
func TryNewPushConfig(cfg PushConfig) (PushConfig, error) {
	if cfg.MaxRetries < 0 {
		return PushConfig{}, fmt.Errorf("distributor: MaxRetries must be >= 0")
	}
	if cfg.RetryDelay < 0 {
		return PushConfig{}, fmt.Errorf("distributor: RetryDelay must be >= 0")
	}
	return cfg, nil
}

// RetryableError marks a push failure that should be retried, as opposed to
// a hard failure that should fail the push immediately.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Pusher delivers bundle versions to individual instances, retrying
// transient failures up to PushConfig.MaxRetries times.
type Pusher struct {
	cfg    PushConfig
	client Pushable
}

// NewPusher builds a Pusher that delivers updates through client.
func NewPusher(cfg PushConfig, client Pushable) *Pusher {
	return &Pusher{cfg: cfg, client: client}
}

// Push attempts to deliver version of service to inst, retrying retryable
// errors up to cfg.MaxRetries times with cfg.RetryDelay between attempts.
// An instance already marked Unreachable fails immediately without any
// attempt.
func (p *Pusher) Push(ctx context.Context, inst core.Instance, service, version string) PushResult {
	start := time.Now()
	result := PushResult{InstanceID: inst.ID, Version: version}

	if inst.Status.Kind == core.StatusUnreachable {
		result.Error = (&InstanceUnreachableError{
			ID: inst.ID, Endpoint: fmt.Sprintf("%s:%d", inst.Endpoint.Host, inst.Endpoint.Port),
			Reason: inst.Status.LastError,
		}).Error()
		result.Duration = time.Since(start)
		return result
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		err := p.client.UpdatePolicy(ctx, inst, service, version)
		if err == nil {
			result.Success = true
			result.Duration = time.Since(start)
			return result
		}
		lastErr = err

		var retryable *RetryableError
		if !asRetryable(err, &retryable) || attempt > p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			result.Duration = time.Since(start)
			result.Error = lastErr.Error()
			return result
		case <-time.After(p.cfg.RetryDelay):
		}
	}

	result.Error = lastErr.Error()
	result.Duration = time.Since(start)
	return result
}

func asRetryable(err error, target **RetryableError) bool {
	re, ok := err.(*RetryableError)
	if ok {
		*target = re
	}
	return ok
}

// HealthCheck synthesises a health observation from inst's current status.
func (p *Pusher) HealthCheck(inst core.Instance) HealthCheck {
	return HealthCheck{
		InstanceID: inst.ID,
		Status:     inst.Status.Kind,
		Version:    inst.Status.Version,
		Message:    inst.Status.Reason,
		CheckedAt:  time.Now().UTC(),
	}
}
