package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/eunomia-project/eunomia/core"
)

// AnalysisResult is the static-analysis summary of one policy.
type AnalysisResult struct {
	Warnings        []string
	HasDefaultAllow bool
	HasDefaultDeny  bool
	Imports         []string
	Rules           []string
}

// AnalyzerOptions configures optional stricter checks.
type AnalyzerOptions struct {
	RequireDefault   bool
	WarnMissingTests bool
}

var (
	defaultAllowTrueRe  = regexp.MustCompile(`^default\s+allow\s*(?::=|=)\s*true\b`)
	defaultAllowFalseRe = regexp.MustCompile(`^default\s+allow\s*(?::=|=)\s*false\b`)
)

// Analyze runs the static analyzer over a single policy.
func Analyze(p *core.Policy, opts AnalyzerOptions) (*AnalysisResult, error) {
	result := &AnalysisResult{}

	for _, rawLine := range strings.Split(p.Source, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case defaultAllowTrueRe.MatchString(line):
			result.HasDefaultAllow = true
			result.Warnings = append(result.Warnings, "Default allow is true — this may be insecure")
		case defaultAllowFalseRe.MatchString(line):
			result.HasDefaultDeny = true
		}

		if m := importRe.FindStringSubmatch(line); m != nil {
			result.Imports = append(result.Imports, m[1])
		}
		if m := ruleHeadRe.FindStringSubmatch(line); m != nil {
			result.Rules = append(result.Rules, m[1])
		}
	}

	if opts.RequireDefault && !result.HasDefaultAllow && !result.HasDefaultDeny {
		return result, &core.ValidationError{Message: fmt.Sprintf("policy %q declares neither a default allow nor a default deny", p.Package)}
	}

	if opts.WarnMissingTests && !p.IsTest() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("no test package found for %q; expected %q", p.Package, p.Package+"_test"))
	}

	return result, nil
}
