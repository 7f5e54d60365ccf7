package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRoundTrip(t *testing.T) {
	b := newTestBundle(t)
	b.Manifest.EngineVersion = "1.0.0"
	b.Manifest.Metadata["team"] = "checkout"

	data, err := b.ToBytes()
	require.NoError(t, err)

	round, err := FromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, b.Service, round.Service)
	assert.Equal(t, b.Version, round.Version)
	assert.Equal(t, b.Manifest.EngineVersion, round.Manifest.EngineVersion)
	assert.Equal(t, "checkout", round.Manifest.Metadata["team"])
	require.Contains(t, round.Policies, "checkout.authz")
	assert.Equal(t, b.Policies["checkout.authz"].Source, round.Policies["checkout.authz"].Source)
	assert.Equal(t, b.DataFiles["roles.json"], round.DataFiles["roles.json"])
	assert.Equal(t, b.Checksum(), round.Checksum())
}

// TestArchiveDeterministic covers the archive-determinism property:
// serialising the same bundle content twice must produce byte-identical
// archives, since entries are written in sorted order with a fixed mtime.
func TestArchiveDeterministic(t *testing.T) {
	b := newTestBundle(t)

	dataA, err := b.ToBytes()
	require.NoError(t, err)
	dataB, err := b.ToBytes()
	require.NoError(t, err)

	assert.Equal(t, dataA, dataB)
}

func TestFromBytesRejectsNonArchiveInput(t *testing.T) {
	_, err := FromBytes([]byte("not a valid archive"))
	assert.Error(t, err)
}
