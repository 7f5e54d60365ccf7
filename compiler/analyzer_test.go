package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

func TestAnalyzeFlagsDefaultAllowTrue(t *testing.T) {
	p := core.NewPolicy("checkout.authz", "package checkout.authz\n\ndefault allow := true\n")
	result, err := Analyze(p, AnalyzerOptions{})
	require.NoError(t, err)

	assert.True(t, result.HasDefaultAllow)
	assert.False(t, result.HasDefaultDeny)
	assert.Contains(t, result.Warnings[0], "insecure")
}

func TestAnalyzeRecognisesDefaultDeny(t *testing.T) {
	p := core.NewPolicy("checkout.authz", "package checkout.authz\n\ndefault allow := false\n")
	result, err := Analyze(p, AnalyzerOptions{})
	require.NoError(t, err)

	assert.False(t, result.HasDefaultAllow)
	assert.True(t, result.HasDefaultDeny)
	assert.Empty(t, result.Warnings)
}

func TestAnalyzeRequireDefaultFailsWithoutEither(t *testing.T) {
	p := core.NewPolicy("checkout.authz", "package checkout.authz\n\nallow if { input.method == \"GET\" }\n")
	_, err := Analyze(p, AnalyzerOptions{RequireDefault: true})

	var valErr *core.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestAnalyzeWarnMissingTestsSkipsTestPolicies(t *testing.T) {
	p := &core.Policy{Package: "checkout.authz_test", Source: "package checkout.authz_test\n\ndefault allow := false\n"}
	result, err := Analyze(p, AnalyzerOptions{WarnMissingTests: true})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
}

func TestAnalyzeWarnMissingTestsFlagsNonTestPolicy(t *testing.T) {
	p := core.NewPolicy("checkout.authz", "package checkout.authz\n\ndefault allow := false\n")
	result, err := Analyze(p, AnalyzerOptions{WarnMissingTests: true})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "checkout.authz_test")
}

func TestAnalyzeCollectsImportsAndRules(t *testing.T) {
	p := core.NewPolicy("checkout.authz", "package checkout.authz\n\nimport future.keywords.if\n\nallow if { input.method == \"GET\" }\n")
	result, err := Analyze(p, AnalyzerOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"future.keywords.if"}, result.Imports)
	assert.Contains(t, result.Rules, "allow")
}
