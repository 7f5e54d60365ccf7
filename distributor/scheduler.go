package distributor

import (
	"context"
	"sync"
	"time"

	"github.com/eunomia-project/eunomia/core"
)

// Priority orders entries in a DeploymentScheduler's queue: Critical is
// served before High, before Normal, before Low.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// QueueItem is one pending deployment request.
type QueueItem struct {
	ID         string
	Priority   Priority
	Service    string
	Version    string
	Strategy   core.DeploymentStrategy
	EnqueuedAt time.Time
}

// SchedulerConfig configures a DeploymentScheduler.
type SchedulerConfig struct {
	Capacity        int
	MaxConcurrent   int
	PriorityEnabled bool
}

// TryNewSchedulerConfig validates cfg and applies defaults, the
// authoritative fallible constructor for SchedulerConfig.
func TryNewSchedulerConfig(cfg SchedulerConfig) (SchedulerConfig, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return cfg, nil
}

// DeploymentScheduler is a bounded priority queue admitting deployments up
// to MaxConcurrent at a time, guarded by a single lock: writer locks on
// every mutation, since there is no separate read path worth a RWMutex
// here given every Dequeue also mutates admission state.
type DeploymentScheduler struct {
	cfg SchedulerConfig

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []QueueItem
	active int
}

// NewDeploymentScheduler builds an empty scheduler.
func NewDeploymentScheduler(cfg SchedulerConfig) *DeploymentScheduler {
	s := &DeploymentScheduler{cfg: cfg}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Enqueue inserts item into the queue. When priority is enabled, item is
// placed before the first lower-priority entry (stable among equal
// priorities); when disabled the queue is plain FIFO. Enqueuing into a full
// queue fails with ErrQueueFull.
func (s *DeploymentScheduler) Enqueue(item QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) >= s.cfg.Capacity {
		return ErrQueueFull
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}

	if !s.cfg.PriorityEnabled {
		s.queue = append(s.queue, item)
		s.cond.Broadcast()
		return nil
	}

	insertAt := len(s.queue)
	for i, existing := range s.queue {
		if existing.Priority < item.Priority {
			insertAt = i
			break
		}
	}
	s.queue = append(s.queue, QueueItem{})
	copy(s.queue[insertAt+1:], s.queue[insertAt:])
	s.queue[insertAt] = item
	s.cond.Broadcast()
	return nil
}

// Dequeue blocks until an item is available AND active deployments are
// below MaxConcurrent, then removes and returns it, incrementing active.
// It returns ctx's error if ctx is cancelled first.
func (s *DeploymentScheduler) Dequeue(ctx context.Context) (QueueItem, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return QueueItem{}, err
		}
		if len(s.queue) > 0 && s.active < s.cfg.MaxConcurrent {
			item := s.queue[0]
			s.queue = s.queue[1:]
			s.active++
			return item, nil
		}
		s.cond.Wait()
	}
}

// Complete decrements the active count for a previously dequeued
// deployment, admitting the next candidate.
func (s *DeploymentScheduler) Complete(_ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active > 0 {
		s.active--
	}
	s.cond.Broadcast()
}

// Remove deletes the queued (not yet dequeued) item with id, if present.
func (s *DeploymentScheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.queue {
		if item.ID == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a snapshot of the currently queued items.
func (s *DeploymentScheduler) List() []QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueueItem, len(s.queue))
	copy(out, s.queue)
	return out
}

// Clear empties the queue without affecting the active count.
func (s *DeploymentScheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.cond.Broadcast()
}

// ActiveCount returns the current number of admitted (not yet completed)
// deployments.
func (s *DeploymentScheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
