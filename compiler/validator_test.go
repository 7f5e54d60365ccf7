package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

func hasCategory(issues []Issue, cat IssueCategory) bool {
	for _, i := range issues {
		if i.Category == cat {
			return true
		}
	}
	return false
}

func TestValidateFlagsUnknownOperation(t *testing.T) {
	v := NewValidator(nil, map[string]bool{"checkout.create_order": true}, nil)
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

allow if { input.operation_id == "checkout.delete_order" }
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)
	assert.True(t, hasCategory(issues, UnknownOperation))
}

func TestValidateAllowsOperationFromServiceContract(t *testing.T) {
	contracts := []ServiceContract{{ServiceName: "checkout", OperationIDs: map[string]bool{"checkout.create_order": true}}}
	v := NewValidator(contracts, nil, nil)
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

allow if { input.operation_id == "checkout.create_order" }
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)
	assert.False(t, hasCategory(issues, UnknownOperation))
}

func TestValidateFlagsInvalidMethodAndCallerType(t *testing.T) {
	v := NewValidator(nil, nil, nil)
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

allow if {
	input.method == "FETCH"
	caller.type == "robot"
}
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)

	var messages []string
	for _, i := range issues {
		messages = append(messages, i.Message)
	}
	assert.Contains(t, messages, `"FETCH" is not a valid HTTP method`)
	assert.Contains(t, messages, `"robot" is not a valid caller.type`)
}

func TestValidateFlagsDeprecatedInputField(t *testing.T) {
	v := NewValidator(nil, nil, map[string]string{"user_id": "caller.id"})
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

allow if { input.user_id == "alice" }
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)
	require.True(t, hasCategory(issues, InputSchema))
}

func TestValidateFlagsUnreferencedRuleAsUnused(t *testing.T) {
	v := NewValidator(nil, nil, nil)
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

helper := true
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)
	assert.True(t, hasCategory(issues, Unused))
}

func TestValidateFlagsUndefinedRuleReference(t *testing.T) {
	v := NewValidator(nil, nil, nil)
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

allow if { missing_helper(input.method) }
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)
	assert.True(t, hasCategory(issues, UndefinedRule))
}

func TestValidateDataReferenceRequiresKnownRoot(t *testing.T) {
	v := NewValidator(nil, nil, nil)
	v.KnownDataRoots = map[string]bool{"users": true}
	p := core.NewPolicy("checkout.authz", `package checkout.authz

default allow := false

allow if { data.roles.admin }
`)
	issues, err := v.Validate(p)
	require.NoError(t, err)
	assert.True(t, hasCategory(issues, DataReference))
}

func TestIssueCategoryString(t *testing.T) {
	assert.Equal(t, "unknown_operation", UnknownOperation.String())
	assert.Equal(t, "undefined_rule", UndefinedRule.String())
	assert.Equal(t, "unused", Unused.String())
	assert.Equal(t, "input_schema", InputSchema.String())
	assert.Equal(t, "data_reference", DataReference.String())
	assert.Equal(t, "type_mismatch", TypeMismatch.String())
}
