package core

import (
	"strings"
	"time"
)

// PolicyInput is the document fed to the policy evaluator at runtime.
type PolicyInput struct {
	Caller      CallerIdentity
	Service     string
	OperationID string
	Method      string
	Path        string
	Headers     map[string]string // lower-cased keys
	Timestamp   time.Time         // UTC
	Environment string            // default "production"
	Context     map[string]any    // optional
}

// NewPolicyInput builds a PolicyInput with the default environment tag and
// the current UTC timestamp; callers can override both before evaluation.
func NewPolicyInput(caller CallerIdentity, service, operationID, method, path string) *PolicyInput {
	return &PolicyInput{
		Caller:      caller,
		Service:     service,
		OperationID: operationID,
		Method:      strings.ToUpper(method),
		Path:        path,
		Headers:     map[string]string{},
		Timestamp:   time.Now().UTC(),
		Environment: "production",
	}
}

// SetHeader stores a header under its lower-cased key.
func (in *PolicyInput) SetHeader(key, value string) {
	if in.Headers == nil {
		in.Headers = map[string]string{}
	}
	in.Headers[strings.ToLower(key)] = value
}

// Header looks up a header by its lower-cased key.
func (in *PolicyInput) Header(key string) (string, bool) {
	v, ok := in.Headers[strings.ToLower(key)]
	return v, ok
}
