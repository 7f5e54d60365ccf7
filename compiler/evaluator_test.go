package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

const authzPolicy = `package checkout.authz

default allow := false

allow if {
	input.operation_id == "checkout.create_order"
	input.caller.type == "user"
}
`

func TestEngineEvalBoolAllowsMatchingInput(t *testing.T) {
	e := NewEngine()
	info, err := e.AddPolicy("checkout.rego", authzPolicy)
	require.NoError(t, err)
	assert.Equal(t, "checkout.authz", info.Package)
	assert.Contains(t, info.Rules, "allow")

	e.SetInput(FromJSON(map[string]any{
		"operation_id": "checkout.create_order",
		"caller":       map[string]any{"type": "user"},
	}))

	allowed, err := e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestEngineEvalBoolFallsBackToDefault(t *testing.T) {
	e := NewEngine()
	_, err := e.AddPolicy("checkout.rego", authzPolicy)
	require.NoError(t, err)

	e.SetInput(FromJSON(map[string]any{
		"operation_id": "checkout.delete_order",
		"caller":       map[string]any{"type": "user"},
	}))

	allowed, err := e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestEngineEvalUnknownPackageIsUndefined(t *testing.T) {
	e := NewEngine()
	result, err := e.Eval("data.nonexistent.allow")
	require.NoError(t, err)
	assert.False(t, result.Value.IsDefined())
}

const delegatingPolicy = `package checkout.authz

default allow := false

is_admin if {
	input.caller.role == "admin"
}

allow if {
	is_admin
}
`

func TestEngineEvalDelegatesToOtherRule(t *testing.T) {
	e := NewEngine()
	_, err := e.AddPolicy("checkout.rego", delegatingPolicy)
	require.NoError(t, err)

	e.SetInput(FromJSON(map[string]any{"caller": map[string]any{"role": "admin"}}))
	allowed, err := e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.True(t, allowed)

	e.SetInput(FromJSON(map[string]any{"caller": map[string]any{"role": "user"}}))
	allowed, err = e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.False(t, allowed)
}

const negatedPolicy = `package checkout.authz

default allow := false

allow if {
	not input.caller.blocked
}
`

func TestEngineEvalNegation(t *testing.T) {
	e := NewEngine()
	_, err := e.AddPolicy("checkout.rego", negatedPolicy)
	require.NoError(t, err)

	e.SetInput(FromJSON(map[string]any{"caller": map[string]any{}}))
	allowed, err := e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.True(t, allowed, "an undefined blocked field is falsy, so 'not' makes the rule true")

	e.SetInput(FromJSON(map[string]any{"caller": map[string]any{"blocked": true}}))
	allowed, err = e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.False(t, allowed)
}

const dataDrivenPolicy = `package checkout.authz

default allow := false

allow if {
	data.roles.admin == input.caller.id
}
`

func TestEngineEvalAgainstLoadedData(t *testing.T) {
	e := NewEngine()
	_, err := e.AddPolicy("checkout.rego", dataDrivenPolicy)
	require.NoError(t, err)

	bundle, err := core.NewBundle("checkout-api", "1.0.0")
	require.NoError(t, err)
	bundle.AddPolicy(core.NewPolicy("checkout.authz", dataDrivenPolicy))
	bundle.AddDataFile("roles/data.json", `{"roles": {"admin": "alice"}}`)

	require.NoError(t, e.LoadBundleData(bundle))

	e.SetInput(FromJSON(map[string]any{"caller": map[string]any{"id": "alice"}}))
	allowed, err := e.EvalBool("data.checkout.authz.allow")
	require.NoError(t, err)
	assert.True(t, allowed)
}

const valueRulePolicy = `package checkout.authz

risk_score := 5
`

func TestEngineEvalValueRule(t *testing.T) {
	e := NewEngine()
	_, err := e.AddPolicy("checkout.rego", valueRulePolicy)
	require.NoError(t, err)

	result, err := e.Eval("data.checkout.authz.risk_score")
	require.NoError(t, err)
	assert.Equal(t, KindNumber, result.Value.Kind)
	assert.Equal(t, float64(5), result.Value.Num)
}

const testRulePolicy = `package checkout.authz_test

test_allow_for_admin if {
	true
}
`

func TestEngineGetTestRules(t *testing.T) {
	e := NewEngine()
	info, err := e.AddPolicy("checkout_test.rego", testRulePolicy)
	require.NoError(t, err)
	assert.True(t, info.IsTest)

	rules := e.GetTestRules()
	assert.Contains(t, rules, "data.checkout.authz_test.test_allow_for_admin")
}
