// Package core defines the shared data model of Eunomia: policies, bundles,
// caller identities, policy inputs and decisions, signed bundles, enforcer
// instances and their deployments. Every other package builds on these
// types rather than redefining them.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the data model's own invariants. Package-level
// callers wrap these with github.com/pkg/errors to attach file/line context
// as they cross package boundaries.
var (
	// ErrMissingPackage is returned when a policy source has no leading
	// "package" declaration, or a non-comment line precedes it.
	ErrMissingPackage = errors.New("core: missing package declaration")

	// ErrEmptyBundle is returned when a Bundle with zero policies is
	// validated or compiled.
	ErrEmptyBundle = errors.New("core: bundle must contain at least one policy")

	// ErrMissingVersion is returned when a Bundle is constructed without a
	// semantic version.
	ErrMissingVersion = errors.New("core: bundle version is required")
)

// ParseError reports a source-level problem found while parsing or
// compiling a single policy file.
type ParseError struct {
	File    string
	Line    int // 0 if not recoverable
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// ValidationError reports a semantic or policy-level validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "core: validation failed: " + e.Message }

// BundleError reports a structural problem building or reading a Bundle.
type BundleError struct {
	Message string
}

func (e *BundleError) Error() string { return "core: bundle error: " + e.Message }
