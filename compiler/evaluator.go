package compiler

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eunomia-project/eunomia/core"
)

// PolicyInfo is returned by Engine.AddPolicy.
type PolicyInfo struct {
	Package  string
	FilePath string
	Rules    []string
	IsTest   bool
}

// EvalResult wraps the tagged Value an evaluation query produced.
type EvalResult struct {
	Value Value
}

// condition is one AND-ed line inside a rule body.
type condition struct {
	negate   bool
	lhsPath  []string // e.g. ["input","method"]; empty if lhs is a bare rule reference
	ruleRef  string    // set when the condition is a bare reference to another rule
	operator string    // "", "==", "!=", ">", "<", ">=", "<="
	rhs      Value
	rhsPath  []string // set when the rhs is itself a path instead of a literal
}

// ruleDef is one named rule: either a direct value assignment (no body) or
// one or more AND-bodies (OR'd together, matching Rego's incremental
// definition semantics), plus an optional default.
type ruleDef struct {
	name         string
	valueExpr    *condition // "name := <literal>" with no body
	bodies       [][]condition
	hasDefault   bool
	defaultValue Value
}

type compiledPolicy struct {
	pkg      string
	filePath string
	isTest   bool
	ruleOrder []string
	rules    map[string]*ruleDef
}

// Engine is the embedded evaluation back-end. It implements a
// deliberately bounded subset of Rego: value rules, boolean
// rules built from AND-ed comparisons/references over input/data paths,
// defaults, and negation — enough to evaluate the authorization patterns
// this system's policies actually use (default allow/deny, operation id
// and method comparisons, delegation to other rules).
type Engine struct {
	policies map[string]*compiledPolicy
	input    Value
	data     Value
	log      *logrus.Entry
}

// NewEngine builds an empty evaluation engine.
func NewEngine() *Engine {
	return &Engine{
		policies: map[string]*compiledPolicy{},
		input:    Object(map[string]Value{}),
		data:     Object(map[string]Value{}),
		log:      logrus.WithField("component", "compiler.evaluator"),
	}
}

// AddPolicy parses source and registers its rules under its package.
func (e *Engine) AddPolicy(name, source string) (*PolicyInfo, error) {
	parsed, err := Parse(name, source)
	if err != nil {
		return nil, err
	}
	cp, err := compilePolicyBody(parsed.Package, name, source)
	if err != nil {
		return nil, err
	}
	e.policies[parsed.Package] = cp

	info := &PolicyInfo{
		Package:  parsed.Package,
		FilePath: name,
		Rules:    append([]string(nil), cp.ruleOrder...),
		IsTest:   cp.isTest,
	}
	return info, nil
}

// SetInput replaces the document fed to "input.*" references. v should be
// the result of FromJSON over a decoded JSON document.
func (e *Engine) SetInput(v Value) { e.input = v }

// AddData merges v into the document fed to "data.*" references.
func (e *Engine) AddData(v Value) {
	if v.Kind != KindObject {
		return
	}
	if e.data.Kind != KindObject {
		e.data = Object(map[string]Value{})
	}
	for k, val := range v.Object {
		e.data.Object[k] = val
	}
}

// LoadBundleData parses every data file of bundle (JSON or YAML, by
// extension) and merges it into the engine's data document.
func (e *Engine) LoadBundleData(bundle *core.Bundle) error {
	for path, content := range bundle.DataFiles {
		v, err := ParseDataFile(path, content)
		if err != nil {
			return err
		}
		e.AddData(v)
	}
	return nil
}

// Eval evaluates a dotted query, e.g. "data.users_service.authz.allow".
func (e *Engine) Eval(query string) (EvalResult, error) {
	pkg, rule, err := splitQuery(query)
	if err != nil {
		return EvalResult{}, err
	}
	cp, ok := e.policies[pkg]
	if !ok {
		return EvalResult{Value: Undefined()}, nil
	}
	v := e.evalRule(cp, rule, map[string]bool{})
	return EvalResult{Value: v}, nil
}

// EvalBool evaluates query and collapses the result via IsTruthy;
// Undefined is treated as false.
func (e *Engine) EvalBool(query string) (bool, error) {
	res, err := e.Eval(query)
	if err != nil {
		return false, err
	}
	return res.Value.IsTruthy(), nil
}

// GetTestRules returns every loaded rule whose name starts with "test_",
// qualified as "data.<pkg>.<name>".
func (e *Engine) GetTestRules() []string {
	var out []string
	for pkg, cp := range e.policies {
		for _, name := range cp.ruleOrder {
			if strings.HasPrefix(name, "test_") {
				out = append(out, "data."+pkg+"."+name)
			}
		}
	}
	return out
}

func splitQuery(query string) (pkg, rule string, err error) {
	query = strings.TrimPrefix(query, "data.")
	idx := strings.LastIndexByte(query, '.')
	if idx < 0 {
		return "", "", errors.Errorf("compiler: malformed query %q", query)
	}
	return query[:idx], query[idx+1:], nil
}

func (e *Engine) evalRule(cp *compiledPolicy, name string, visiting map[string]bool) Value {
	if visiting[name] {
		return Undefined() // cyclic reference guard
	}
	rule, ok := cp.rules[name]
	if !ok {
		return Undefined()
	}
	visiting[name] = true
	defer delete(visiting, name)

	if rule.valueExpr != nil {
		return e.evalOperand(cp, *rule.valueExpr, visiting)
	}

	for _, body := range rule.bodies {
		if e.evalBody(cp, body, visiting) {
			return Bool(true)
		}
	}
	if rule.hasDefault {
		return rule.defaultValue
	}
	if len(rule.bodies) > 0 {
		return Undefined()
	}
	return Undefined()
}

func (e *Engine) evalBody(cp *compiledPolicy, body []condition, visiting map[string]bool) bool {
	for _, c := range body {
		if !e.evalCondition(cp, c, visiting) {
			return false
		}
	}
	return true
}

func (e *Engine) evalCondition(cp *compiledPolicy, c condition, visiting map[string]bool) bool {
	var lhs Value
	switch {
	case c.ruleRef != "":
		lhs = e.evalRule(cp, c.ruleRef, visiting)
	case len(c.lhsPath) > 0:
		lhs = e.resolvePath(c.lhsPath)
	}

	var result bool
	switch c.operator {
	case "":
		result = lhs.IsTruthy()
	case "==", "!=", ">", "<", ">=", "<=":
		rhs := c.rhs
		if len(c.rhsPath) > 0 {
			rhs = e.resolvePath(c.rhsPath)
		}
		result = compareValues(lhs, c.operator, rhs)
	}
	if c.negate {
		return !result
	}
	return result
}

func compareValues(lhs Value, op string, rhs Value) bool {
	switch op {
	case "==":
		return lhs.Equal(rhs)
	case "!=":
		return !lhs.Equal(rhs)
	}
	if lhs.Kind != KindNumber || rhs.Kind != KindNumber {
		return false
	}
	switch op {
	case ">":
		return lhs.Num > rhs.Num
	case "<":
		return lhs.Num < rhs.Num
	case ">=":
		return lhs.Num >= rhs.Num
	case "<=":
		return lhs.Num <= rhs.Num
	}
	return false
}

func (e *Engine) evalOperand(cp *compiledPolicy, c condition, visiting map[string]bool) Value {
	switch {
	case c.ruleRef != "":
		return e.evalRule(cp, c.ruleRef, visiting)
	case len(c.lhsPath) > 0:
		return e.resolvePath(c.lhsPath)
	default:
		return c.rhs
	}
}

func (e *Engine) resolvePath(path []string) Value {
	if len(path) == 0 {
		return Undefined()
	}
	switch path[0] {
	case "input":
		return e.input.Get(path[1:])
	case "data":
		return e.data.Get(path[1:])
	default:
		return Undefined()
	}
}

// compilePolicyBody parses source into a compiledPolicy using the same
// line-oriented scanning style as the parser and linter.
func compilePolicyBody(pkg, file, source string) (*compiledPolicy, error) {
	cp := &compiledPolicy{
		pkg:      pkg,
		filePath: file,
		isTest:   strings.HasSuffix(pkg, "_test"),
		rules:    map[string]*ruleDef{},
	}

	lines := strings.Split(source, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "package") || strings.HasPrefix(line, "import") {
			continue
		}

		m := ruleHeadRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		isDefault := strings.HasPrefix(line, "default")

		rule := cp.rules[name]
		if rule == nil {
			rule = &ruleDef{name: name}
			cp.rules[name] = rule
			cp.ruleOrder = append(cp.ruleOrder, name)
		}

		switch {
		case strings.Contains(line, "{"):
			body, consumed := scanBody(lines, i, line)
			i = consumed
			cond, err := parseBodyConditions(body)
			if err != nil {
				return nil, &core.ParseError{File: file, Line: i + 1, Message: err.Error()}
			}
			rule.bodies = append(rule.bodies, cond)
		case strings.Contains(line, ":=") || strings.Contains(line, "="):
			expr := extractAssignmentRHS(line)
			cond, err := parseOperand(expr)
			if err != nil {
				return nil, &core.ParseError{File: file, Line: i + 1, Message: err.Error()}
			}
			if isDefault {
				rule.hasDefault = true
				rule.defaultValue = e0EvalLiteral(cond)
			} else {
				rule.valueExpr = &cond
			}
		}
	}
	return cp, nil
}

// e0EvalLiteral resolves a parsed operand that is known to be a literal
// (defaults never reference input/data).
func e0EvalLiteral(c condition) Value {
	if len(c.lhsPath) == 0 && c.ruleRef == "" {
		return c.rhs
	}
	return Undefined()
}

// scanBody collects the lines of a "{ ... }" block starting at startIdx,
// returning the interior lines and the index of the closing brace line.
func scanBody(lines []string, startIdx int, firstLine string) ([]string, int) {
	var body []string
	if idx := strings.Index(firstLine, "{"); idx >= 0 {
		rest := strings.TrimSpace(firstLine[idx+1:])
		if rest != "" && rest != "}" {
			body = append(body, rest)
		}
		if rest == "}" || strings.HasSuffix(rest, "}") {
			return body, startIdx
		}
	}
	i := startIdx + 1
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "}" {
			return body, i
		}
		if line != "" {
			body = append(body, line)
		}
	}
	return body, i
}

func parseBodyConditions(lines []string) ([]condition, error) {
	var out []condition
	for _, raw := range lines {
		for _, stmt := range strings.Split(raw, ";") {
			stmt = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ","))
			if stmt == "" || strings.HasPrefix(stmt, "#") {
				continue
			}
			c, err := parseCondition(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

var comparisonOps = []string{"==", "!=", ">=", "<=", ">", "<"}

func parseCondition(stmt string) (condition, error) {
	c := condition{}
	if strings.HasPrefix(stmt, "not ") {
		c.negate = true
		stmt = strings.TrimSpace(strings.TrimPrefix(stmt, "not "))
	}

	for _, op := range comparisonOps {
		if idx := strings.Index(stmt, op); idx >= 0 {
			lhs := strings.TrimSpace(stmt[:idx])
			rhs := strings.TrimSpace(stmt[idx+len(op):])
			c.operator = op
			setOperand(&c, lhs, true)
			rc := condition{}
			if err := setOperandValue(&rc, rhs); err != nil {
				return c, err
			}
			c.rhs = rc.rhs
			c.rhsPath = rc.lhsPath
			return c, nil
		}
	}

	setOperand(&c, stmt, false)
	return c, nil
}

// setOperand fills c's lhs fields (lhsOnly) or records a bare reference.
func setOperand(c *condition, token string, lhsOnly bool) {
	if strings.HasPrefix(token, "input.") || strings.HasPrefix(token, "data.") {
		c.lhsPath = strings.Split(token, ".")
		return
	}
	if !lhsOnly {
		c.ruleRef = token
	}
}

func setOperandValue(c *condition, token string) error {
	cond, err := parseOperand(token)
	if err != nil {
		return err
	}
	*c = cond
	return nil
}

// parseOperand parses a single operand token: a quoted string, a number, a
// bool literal, or an input./data. path.
func parseOperand(token string) (condition, error) {
	token = strings.TrimSpace(token)
	switch {
	case strings.HasPrefix(token, "\"") && strings.HasSuffix(token, "\"") && len(token) >= 2:
		return condition{rhs: String(token[1 : len(token)-1])}, nil
	case token == "true":
		return condition{rhs: Bool(true)}, nil
	case token == "false":
		return condition{rhs: Bool(false)}, nil
	case token == "null":
		return condition{rhs: Null()}, nil
	case strings.HasPrefix(token, "input.") || strings.HasPrefix(token, "data."):
		return condition{lhsPath: strings.Split(token, ".")}, nil
	default:
		if n, err := strconv.ParseFloat(token, 64); err == nil {
			return condition{rhs: Number(n)}, nil
		}
		// Fall back to treating it as a bare rule reference.
		return condition{ruleRef: token}, nil
	}
}

// extractAssignmentRHS returns the right-hand side of a "name := expr" or
// "name = expr" line, stripping a leading "default" keyword.
func extractAssignmentRHS(line string) string {
	line = strings.TrimPrefix(line, "default")
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, ":="); idx >= 0 {
		return strings.TrimSpace(line[idx+2:])
	}
	if idx := strings.Index(line, "="); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}
