package core

import (
	"strings"
	"time"
)

// Policy represents a single Rego-like source file before compilation into
// a Bundle.
type Policy struct {
	Package     string
	Source      string
	FilePath    string // optional
	CreatedAt   time.Time
	Description string   // optional, from a "# METADATA" block
	Authors     []string // optional, from a "# METADATA" block
}

// NewPolicy builds a Policy directly from an already-known package name and
// source, stamping CreatedAt to now. Compiler code that parses source text
// from scratch uses compiler.Parser instead, which derives Package from the
// source itself.
func NewPolicy(pkg, source string) *Policy {
	return &Policy{
		Package:   pkg,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// IsTest reports whether this is a test policy: its package name or file
// name ends in "_test". Test policies are excluded from shipped bundles by
// default.
func (p *Policy) IsTest() bool {
	if strings.HasSuffix(p.Package, "_test") {
		return true
	}
	base := p.FilePath
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".rego")
	return strings.HasSuffix(base, "_test")
}

// IntraBundlePath derives the archive-relative path for this policy's
// package: "a.b.c" -> "a/b/c.rego"; a single component -> "<name>.rego".
func (p *Policy) IntraBundlePath() string {
	parts := strings.Split(p.Package, ".")
	return strings.Join(parts, "/") + ".rego"
}
