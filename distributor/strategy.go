package distributor

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eunomia-project/eunomia/core"
)

// Dispatcher runs a DeploymentStrategy's push order against a fleet,
// recording progress in a DeploymentTracker and health observations in a
// HealthTracker.
type Dispatcher struct {
	pusher  *Pusher
	tracker *DeploymentTracker
	health  *HealthTracker
	log     *logrus.Entry
}

// NewDispatcher builds a Dispatcher over the given collaborators.
func NewDispatcher(pusher *Pusher, tracker *DeploymentTracker, health *HealthTracker) *Dispatcher {
	return &Dispatcher{
		pusher:  pusher,
		tracker: tracker,
		health:  health,
		log:     logrus.WithField("component", "distributor.dispatcher"),
	}
}

// Deploy starts tracking a new deployment for service at version against
// instances, then dispatches pushes per strategy's Kind. It returns the
// final deployment record.
func (d *Dispatcher) Deploy(ctx context.Context, service, version string, instances []core.Instance, strategy core.DeploymentStrategy) (*core.Deployment, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstancesFound
	}

	dep, err := d.tracker.StartDeployment(service, version, len(instances))
	if err != nil {
		return nil, err
	}

	switch strategy.Kind {
	case core.StrategyCanary:
		d.runCanary(ctx, dep.ID, service, version, instances, strategy)
	case core.StrategyRolling:
		d.runRolling(ctx, dep.ID, service, version, instances, strategy)
	default:
		d.pushAll(ctx, dep.ID, service, version, instances)
	}

	final, err := d.tracker.Get(dep.ID)
	if err != nil {
		return nil, err
	}
	if !final.State.IsTerminal() {
		ok := final.Failed == 0
		if compErr := d.tracker.CompleteDeployment(dep.ID, ok, ""); compErr != nil {
			d.log.WithError(compErr).Warn("failed to finalize deployment state")
		}
		final, err = d.tracker.Get(dep.ID)
		if err != nil {
			return nil, err
		}
	}
	return final, nil
}

// pushAll implements the Immediate phase: push to every instance
// concurrently, recording each result as it lands. Pushes never fail the
// errgroup itself — failures are data (a PushResult), not control flow —
// so fan-out concurrency comes from errgroup without its error-cancellation
// semantics ever triggering.
func (d *Dispatcher) pushAll(ctx context.Context, deploymentID, service, version string, instances []core.Instance) []PushResult {
	results := make([]PushResult, len(instances))
	var g errgroup.Group
	for i, inst := range instances {
		i, inst := i, inst
		g.Go(func() error {
			res := d.pusher.Push(ctx, inst, service, version)
			results[i] = res
			if err := d.tracker.UpdateInstance(deploymentID, inst.ID, res.Success, res.Error); err != nil {
				d.log.WithError(err).Warn("failed to record instance push result")
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// anyFailed reports whether results contains at least one failure.
func anyFailed(results []PushResult) bool {
	for _, r := range results {
		if !r.Success {
			return true
		}
	}
	return false
}

// runCanary implements the Canary phase ordering: canary push →
// validation wait → health sweep → remainder push, aborting after any
// failed phase without touching the rest of the fleet.
func (d *Dispatcher) runCanary(ctx context.Context, deploymentID, service, version string, instances []core.Instance, strategy core.DeploymentStrategy) {
	total := len(instances)
	canaryCount := int(math.Ceil(float64(total) * float64(strategy.Percentage) / 100.0))
	if canaryCount < 1 {
		canaryCount = 1
	}
	if canaryCount > total {
		canaryCount = total
	}

	canary := instances[:canaryCount]
	remainder := instances[canaryCount:]

	canaryResults := d.pushAll(ctx, deploymentID, service, version, canary)
	if anyFailed(canaryResults) {
		d.log.WithField("service", service).Warn("canary push failed, aborting rollout")
		return
	}

	if strategy.ValidationDuration > 0 {
		select {
		case <-time.After(strategy.ValidationDuration):
		case <-ctx.Done():
			return
		}
	}

	for _, inst := range canary {
		check := d.pusher.HealthCheck(inst)
		d.health.Record(check)
		if check.Status != core.StatusHealthy {
			d.log.WithField("instance", inst.ID).Warn("canary instance unhealthy after validation wait, aborting rollout")
			return
		}
	}

	if len(remainder) > 0 {
		d.pushAll(ctx, deploymentID, service, version, remainder)
	}
}

// runRolling implements the Rolling phase: batches run in order, each
// fully Immediate; a batch with any failure stops further batches;
// batch_delay separates successful batches.
func (d *Dispatcher) runRolling(ctx context.Context, deploymentID, service, version string, instances []core.Instance, strategy core.DeploymentStrategy) {
	batchSize := strategy.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(instances); start += batchSize {
		end := start + batchSize
		if end > len(instances) {
			end = len(instances)
		}
		batch := instances[start:end]

		results := d.pushAll(ctx, deploymentID, service, version, batch)
		if anyFailed(results) {
			d.log.WithField("service", service).Warn("rolling batch failed, stopping further batches")
			return
		}

		if end < len(instances) && strategy.BatchDelay > 0 {
			select {
			case <-time.After(strategy.BatchDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}
