package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

const samplePolicy = `# METADATA
# description: checks checkout authorization
# authors:
# - alice
# - bob
package checkout.authz

import future.keywords.if

default allow := false

allow if {
	input.operation_id == "checkout.create_order"
	input.caller.type == "user"
}
`

func TestParseExtractsPackageImportsAndRules(t *testing.T) {
	result, err := Parse("checkout.rego", samplePolicy)
	require.NoError(t, err)

	assert.Equal(t, "checkout.authz", result.Package)
	assert.Equal(t, []string{"future.keywords.if"}, result.Imports)
	assert.Contains(t, result.Rules, "allow")
	assert.Equal(t, "checks checkout authorization", result.Description)
	assert.Equal(t, []string{"alice", "bob"}, result.Authors)
}

func TestParseRejectsMissingPackage(t *testing.T) {
	_, err := Parse("broken.rego", "default allow := false\n")
	assert.ErrorIs(t, err, core.ErrMissingPackage)
}

func TestParseRejectsEmptyPackageName(t *testing.T) {
	_, err := Parse("broken.rego", "package\n")
	var parseErr *core.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseSkipsBlankAndCommentLines(t *testing.T) {
	result, err := Parse("simple.rego", "\n# a leading comment\npackage simple\n\ndefault allow := false\n")
	require.NoError(t, err)
	assert.Equal(t, "simple", result.Package)
}
