package core

import "time"

// StrategyKind enumerates the supported rollout strategies.
type StrategyKind int

const (
	StrategyImmediate StrategyKind = iota
	StrategyCanary
	StrategyRolling
)

// DeploymentStrategy is a tagged rollout policy. Only the fields relevant
// to Kind are populated.
type DeploymentStrategy struct {
	Kind StrategyKind

	// Canary
	Percentage         int // 1..100
	ValidationDuration time.Duration
	AutoRollback       bool
	MaxFailures        int

	// Rolling
	BatchSize  int // >= 1
	BatchDelay time.Duration
	// Rolling also reuses AutoRollback and MaxFailures above.
}

// Immediate builds the Immediate strategy.
func Immediate() DeploymentStrategy {
	return DeploymentStrategy{Kind: StrategyImmediate}
}

// Canary builds the Canary strategy. percentage must be 1..100.
func Canary(percentage int, validationDuration time.Duration, autoRollback bool, maxFailures int) DeploymentStrategy {
	return DeploymentStrategy{
		Kind:               StrategyCanary,
		Percentage:         percentage,
		ValidationDuration: validationDuration,
		AutoRollback:       autoRollback,
		MaxFailures:        maxFailures,
	}
}

// Rolling builds the Rolling strategy. batchSize must be >= 1.
func Rolling(batchSize int, batchDelay time.Duration, autoRollback bool, maxFailures int) DeploymentStrategy {
	return DeploymentStrategy{
		Kind:         StrategyRolling,
		BatchSize:    batchSize,
		BatchDelay:   batchDelay,
		AutoRollback: autoRollback,
		MaxFailures:  maxFailures,
	}
}
