package compiler

import (
	"regexp"
	"strings"

	"github.com/eunomia-project/eunomia/core"
)

// Severity orders linter findings: Hint < Warning < Error.
type Severity int

const (
	Hint Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "hint"
	}
}

// Category groups linter rules by concern.
type Category int

const (
	Security Category = iota
	BestPractice
	Performance
	Style
	Bugs
)

// Violation is a single linter finding.
type Violation struct {
	RuleID     string
	Severity   Severity
	Message    string
	Line       int // 0 if not line-specific
	Suggestion string
}

// LintContext supplies the cross-policy knowledge some rules need.
type LintContext struct {
	// KnownTestPackages holds the package names of every test policy known
	// to the bundling operation, for the test-coverage rule.
	KnownTestPackages map[string]bool
	// ServiceName is used by the (disabled-by-default) package-naming rule.
	ServiceName string
}

type lintRule struct {
	id       string
	category Category
	severity Severity
	check    func(p *core.Policy, ctx LintContext) []Violation
}

// Linter runs a fixed catalog of identified rules over a policy. The rule
// catalog is a const-valued data table, instantiated fresh by NewLinter
// rather than held as package state shared across callers.
type Linter struct {
	rules []lintRule
}

// NewLinter builds the shipped rule catalog. style/package-naming is a
// Hint-severity rule that is off by default; pass includePackageNaming=true
// to enable it.
func NewLinter(includePackageNaming bool) *Linter {
	rules := []lintRule{
		{"security/default-deny", Security, Error, checkDefaultDeny},
		{"security/no-hardcoded-secrets", Security, Error, checkNoHardcodedSecrets},
		{"style/explicit-imports", Style, Warning, checkExplicitImports},
		{"security/no-wildcard-allow", Security, Warning, checkNoWildcardAllow},
		{"best-practice/test-coverage", BestPractice, Warning, checkTestCoverage},
	}
	if includePackageNaming {
		rules = append(rules, lintRule{"style/package-naming", Style, Hint, checkPackageNaming})
	}
	return &Linter{rules: rules}
}

// Lint runs every enabled rule against p and returns all violations found.
func (l *Linter) Lint(p *core.Policy, ctx LintContext) []Violation {
	var violations []Violation
	for _, r := range l.rules {
		violations = append(violations, r.check(p, ctx)...)
	}
	return violations
}

func checkDefaultDeny(p *core.Policy, _ LintContext) []Violation {
	result, _ := Analyze(p, AnalyzerOptions{})
	if result.HasDefaultAllow {
		return []Violation{{
			RuleID:   "security/default-deny",
			Severity: Error,
			Message:  "default allow := true is insecure",
		}}
	}
	if !result.HasDefaultDeny {
		return []Violation{{
			RuleID:     "security/default-deny",
			Severity:   Error,
			Message:    "policy has no default allow or default deny rule",
			Suggestion: "add \"default allow := false\"",
		}}
	}
	return nil
}

var (
	secretIdentRe = regexp.MustCompile(`(?i)(password|secret|api_key|apikey|access_token|private_key|credential)`)
	literalRe     = regexp.MustCompile(`"[^"]*"`)
)

func checkNoHardcodedSecrets(p *core.Policy, _ LintContext) []Violation {
	var violations []Violation
	for i, raw := range strings.Split(p.Source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "input.") || strings.Contains(line, "data.") {
			continue
		}
		if !secretIdentRe.MatchString(line) {
			continue
		}
		if !strings.Contains(line, ":=") && !literalRe.MatchString(line) {
			continue
		}
		violations = append(violations, Violation{
			RuleID:   "security/no-hardcoded-secrets",
			Severity: Error,
			Message:  "line appears to hardcode a secret-like value",
			Line:     i + 1,
		})
	}
	return violations
}

var futureKeywordRe = regexp.MustCompile(`\b(if|in|every|contains)\b`)

func checkExplicitImports(p *core.Policy, _ LintContext) []Violation {
	parsed, err := Parse(p.FilePath, p.Source)
	if err != nil {
		return nil
	}
	hasFutureImport := false
	for _, imp := range parsed.Imports {
		if strings.HasPrefix(imp, "future.keywords") {
			hasFutureImport = true
			break
		}
	}
	if hasFutureImport {
		return nil
	}
	for i, raw := range strings.Split(p.Source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "package") || strings.HasPrefix(line, "import") {
			continue
		}
		if futureKeywordRe.MatchString(line) {
			return []Violation{{
				RuleID:     "style/explicit-imports",
				Severity:   Warning,
				Message:    "uses a future keyword without importing future.keywords",
				Line:       i + 1,
				Suggestion: "add \"import future.keywords\"",
			}}
		}
	}
	return nil
}

var allowHeadRe = regexp.MustCompile(`^(?:default\s+)?allow\s*(?::=|=|if\s*\{|\{)`)

func checkNoWildcardAllow(p *core.Policy, _ LintContext) []Violation {
	lines := strings.Split(p.Source, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if !allowHeadRe.MatchString(line) {
			continue
		}
		if strings.Contains(line, "default") {
			continue // handled by security/default-deny
		}
		end := i + 10
		if end > len(lines) {
			end = len(lines)
		}
		window := strings.Join(lines[i:end], "\n")
		if !strings.Contains(window, "input.") && !strings.Contains(window, "data.") {
			return []Violation{{
				RuleID:   "security/no-wildcard-allow",
				Severity: Warning,
				Message:  "allow rule does not appear to reference input or data",
				Line:     i + 1,
			}}
		}
	}
	return nil
}

func checkTestCoverage(p *core.Policy, ctx LintContext) []Violation {
	if p.IsTest() {
		return nil
	}
	expected := p.Package + "_test"
	if ctx.KnownTestPackages[expected] {
		return nil
	}
	return []Violation{{
		RuleID:     "best-practice/test-coverage",
		Severity:   Warning,
		Message:    "no test package found for " + p.Package,
		Suggestion: "add a policy under package " + expected,
	}}
}

func checkPackageNaming(p *core.Policy, ctx LintContext) []Violation {
	parts := strings.Split(p.Package, ".")
	if len(parts) >= 2 && (ctx.ServiceName == "" || parts[0] == ctx.ServiceName) {
		return nil
	}
	return []Violation{{
		RuleID:     "style/package-naming",
		Severity:   Hint,
		Message:    "package name does not follow the <service>.<module> convention",
		Suggestion: "rename to " + ctx.ServiceName + "." + p.Package,
	}}
}
