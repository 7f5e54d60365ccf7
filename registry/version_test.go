package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	cases := []struct {
		ref  string
		want Query
	}{
		{"latest", Query{Kind: QueryLatest}},
		{"sha256:abcd", Query{Kind: QueryDigest, Digest: "sha256:abcd"}},
		{"1", Query{Kind: QueryMajor, Major: 1}},
		{"v1", Query{Kind: QueryMajor, Major: 1}},
		{"1.2", Query{Kind: QueryMinor, Major: 1, Minor: 2}},
		{"v1.2.3", Query{Kind: QueryExact, Exact: "v1.2.3"}},
		{"1.2.3", Query{Kind: QueryExact, Exact: "v1.2.3"}},
	}
	for _, c := range cases {
		got, err := ParseQuery(c.ref)
		require.NoError(t, err, "ref %q", c.ref)
		assert.Equal(t, c.want, got, "ref %q", c.ref)
	}
}

func TestParseQueryRejectsMalformed(t *testing.T) {
	for _, ref := range []string{"", "v1.2.3.4", "1.x", "v"} {
		_, err := ParseQuery(ref)
		assert.Error(t, err, "ref %q", ref)
	}
}

func TestResolveLatestPicksMaxSemver(t *testing.T) {
	tags := []string{"v1.0.0", "v1.2.0", "v1.1.5", "v2.0.0-rc1"}
	got, err := Resolve(Query{Kind: QueryLatest}, tags)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0-rc1", got)
}

func TestResolveMajorFiltersByMajor(t *testing.T) {
	tags := []string{"v1.0.0", "v1.5.0", "v2.0.0"}
	got, err := Resolve(Query{Kind: QueryMajor, Major: 1}, tags)
	require.NoError(t, err)
	assert.Equal(t, "v1.5.0", got)
}

func TestResolveMinorFiltersByMajorMinor(t *testing.T) {
	tags := []string{"v1.2.0", "v1.2.9", "v1.3.0"}
	got, err := Resolve(Query{Kind: QueryMinor, Major: 1, Minor: 2}, tags)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.9", got)
}

func TestResolveExactRequiresLiteralMatch(t *testing.T) {
	tags := []string{"v1.2.0", "v1.2.1"}
	got, err := Resolve(Query{Kind: QueryExact, Exact: "v1.2.0"}, tags)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", got)

	_, err = Resolve(Query{Kind: QueryExact, Exact: "v9.9.9"}, tags)
	assert.Error(t, err)
}

func TestResolveDigestRequiresLiteralMatch(t *testing.T) {
	tags := []string{"sha256:aaaa", "v1.0.0"}
	got, err := Resolve(Query{Kind: QueryDigest, Digest: "sha256:aaaa"}, tags)
	require.NoError(t, err)
	assert.Equal(t, "sha256:aaaa", got)
}

func TestResolveNoMatchIsNotFound(t *testing.T) {
	_, err := Resolve(Query{Kind: QueryMajor, Major: 9}, []string{"v1.0.0"})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
