package core

// PolicyDecision is the result of evaluating a PolicyInput against a bundle.
type PolicyDecision struct {
	Allowed         bool
	PolicyID        string
	PolicyVersion   string
	Reason          string // optional
	EvaluationTime  *int64 // optional, nanoseconds
}

// IsAllowed and IsDenied are complementary views of Allowed, kept as methods
// so call sites read naturally regardless of polarity.
func (d PolicyDecision) IsAllowed() bool { return d.Allowed }
func (d PolicyDecision) IsDenied() bool  { return !d.Allowed }
