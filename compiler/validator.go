package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/eunomia-project/eunomia/core"
)

// ServiceContract describes one registered caller-facing contract: the
// operation ids it exposes and which HTTP methods are valid for each.
type ServiceContract struct {
	ServiceName      string
	OperationIDs     map[string]bool
	OperationMethods map[string][]string
}

// IssueCategory classifies a semantic validator finding.
type IssueCategory int

const (
	UnknownOperation IssueCategory = iota
	UndefinedRule
	Unused
	InputSchema
	DataReference
	TypeMismatch
)

func (c IssueCategory) String() string {
	switch c {
	case UnknownOperation:
		return "unknown_operation"
	case UndefinedRule:
		return "undefined_rule"
	case Unused:
		return "unused"
	case InputSchema:
		return "input_schema"
	case DataReference:
		return "data_reference"
	default:
		return "type_mismatch"
	}
}

// Issue is a single semantic validator finding.
type Issue struct {
	Category IssueCategory
	Severity Severity
	Message  string
	Line     int
}

// knownInputFields is the whitelist of top-level PolicyInput fields.
var knownInputFields = map[string]bool{
	"caller": true, "operation_id": true, "method": true, "path": true,
	"headers": true, "resource": true, "context": true, "time": true,
	"environment": true,
}

var allowedCallerTypes = map[string]bool{"user": true, "spiffe": true, "api_key": true, "anonymous": true}

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// builtinRules are identifiers the validator never flags as UndefinedRule
// even though they aren't defined locally: evaluator built-ins and the
// well-known entry points.
var builtinRules = map[string]bool{
	"count": true, "sprintf": true, "contains": true, "startswith": true,
	"endswith": true, "lower": true, "upper": true, "trim": true,
	"object": true, "array": true, "set": true, "time": true, "input": true, "data": true,
}

// entryPoints are rule names exempt from the Unused check.
var entryPoints = map[string]bool{
	"allow": true, "deny": true, "violation": true, "warn": true, "final_allow": true,
}

// Validator runs semantic checks against a set of registered service
// contracts.
type Validator struct {
	Contracts           []ServiceContract
	GlobalOperationIDs  map[string]bool
	DeprecatedFields    map[string]string // old field -> replacement suggestion
	KnownDataRoots      map[string]bool   // optional; enables the DataReference check when non-empty
}

// NewValidator builds a Validator. Any of the maps may be nil.
func NewValidator(contracts []ServiceContract, globalOperationIDs map[string]bool, deprecatedFields map[string]string) *Validator {
	return &Validator{
		Contracts:          contracts,
		GlobalOperationIDs: globalOperationIDs,
		DeprecatedFields:   deprecatedFields,
	}
}

var (
	inputFieldRe   = regexp.MustCompile(`input\.([a-zA-Z_][a-zA-Z0-9_]*)`)
	dataFieldRe    = regexp.MustCompile(`data\.([a-zA-Z_][a-zA-Z0-9_.]*)`)
	opIDCompareRe  = regexp.MustCompile(`operation_id\s*==\s*"([^"]*)"`)
	methodCompareRe = regexp.MustCompile(`input\.method\s*==\s*"([^"]*)"`)
	callerTypeRe   = regexp.MustCompile(`caller\.type\s*==\s*"([^"]*)"`)
	ruleHeadLineRe = regexp.MustCompile(`^(?:default\s+)?([A-Za-z_][A-Za-z0-9_]*)(?:\[[^\]]*\]|\([^)]*\))?\s*(?::=|=|if\s*\{|\{)`)
	identifierRe   = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
)

// Validate runs every check against p and returns all issues found.
func (v *Validator) Validate(p *core.Policy) ([]Issue, error) {
	var issues []Issue
	lines := strings.Split(p.Source, "\n")

	defined := map[string]int{} // rule name -> first defining line
	var definedOrder []string
	referenced := map[string]bool{}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := ruleHeadLineRe.FindStringSubmatch(line); m != nil {
			if _, ok := defined[m[1]]; !ok {
				defined[m[1]] = i + 1
				definedOrder = append(definedOrder, m[1])
			}
		}

		for _, m := range identifierRe.FindAllStringSubmatch(line, -1) {
			referenced[m[1]] = true
		}

		for _, m := range opIDCompareRe.FindAllStringSubmatch(line, -1) {
			issues = append(issues, v.checkOperationID(m[1], i+1)...)
		}

		for _, m := range methodCompareRe.FindAllStringSubmatch(line, -1) {
			if !allowedMethods[m[1]] {
				issues = append(issues, Issue{
					Category: TypeMismatch,
					Severity: Error,
					Message:  fmt.Sprintf("%q is not a valid HTTP method", m[1]),
					Line:     i + 1,
				})
			}
		}

		for _, m := range callerTypeRe.FindAllStringSubmatch(line, -1) {
			if !allowedCallerTypes[m[1]] {
				issues = append(issues, Issue{
					Category: TypeMismatch,
					Severity: Error,
					Message:  fmt.Sprintf("%q is not a valid caller.type", m[1]),
					Line:     i + 1,
				})
			}
		}

		for _, m := range inputFieldRe.FindAllStringSubmatch(line, -1) {
			issues = append(issues, v.checkInputField(m[1], i+1)...)
		}

		if len(v.KnownDataRoots) > 0 {
			for _, m := range dataFieldRe.FindAllStringSubmatch(line, -1) {
				root := strings.SplitN(m[1], ".", 2)[0]
				if !v.KnownDataRoots[root] {
					issues = append(issues, Issue{
						Category: DataReference,
						Severity: Warning,
						Message:  fmt.Sprintf("data.%s has no matching data file", root),
						Line:     i + 1,
					})
				}
			}
		}
	}

	for name, line := range defined {
		if builtinRules[name] || entryPoints[name] || strings.HasPrefix(name, "test_") {
			continue
		}
		if !referenced[name] {
			issues = append(issues, Issue{
				Category: Unused,
				Severity: Warning,
				Message:  fmt.Sprintf("rule %q is defined but never referenced", name),
				Line:     line,
			})
		}
	}

	for name := range referenced {
		if builtinRules[name] || entryPoints[name] {
			continue
		}
		if _, ok := defined[name]; !ok {
			issues = append(issues, Issue{
				Category: UndefinedRule,
				Severity: Error,
				Message:  fmt.Sprintf("reference to undefined rule %q", name),
			})
		}
	}

	return issues, nil
}

func (v *Validator) checkOperationID(opID string, line int) []Issue {
	if v.GlobalOperationIDs[opID] {
		return nil
	}
	for _, c := range v.Contracts {
		if c.OperationIDs[opID] {
			return nil
		}
	}
	return []Issue{{
		Category: UnknownOperation,
		Severity: Error,
		Message:  fmt.Sprintf("operation id %q is not registered in any known service contract", opID),
		Line:     line,
	}}
}

func (v *Validator) checkInputField(field string, line int) []Issue {
	var issues []Issue
	if replacement, deprecated := v.DeprecatedFields[field]; deprecated {
		issues = append(issues, Issue{
			Category: InputSchema,
			Severity: Warning,
			Message:  fmt.Sprintf("input.%s is deprecated; use input.%s", field, replacement),
			Line:     line,
		})
		return issues
	}
	if knownInputFields[field] {
		return nil
	}
	if candidate, ok := similarKnownField(field); ok {
		issues = append(issues, Issue{
			Category: InputSchema,
			Severity: Hint,
			Message:  fmt.Sprintf("input.%s is not a known field; did you mean input.%s?", field, candidate),
			Line:     line,
		})
	}
	return issues
}

// similarKnownField reports a known field sharing an 8-character prefix
// with field, a deliberately liberal heuristic for "did you mean"
// suggestions.
func similarKnownField(field string) (string, bool) {
	const prefixLen = 8
	if len(field) < prefixLen {
		return "", false
	}
	prefix := field[:prefixLen]
	for known := range knownInputFields {
		if len(known) >= prefixLen && known[:prefixLen] == prefix {
			return known, true
		}
	}
	return "", false
}
