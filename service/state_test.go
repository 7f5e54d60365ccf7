package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateMissingFileYieldsEmptyList(t *testing.T) {
	states, err := LoadState(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, states)
}

func TestSaveStateThenLoadStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)

	states := []ServiceState{
		{
			Service:     "checkout-api",
			Version:     "1.2.0",
			Status:      "completed",
			LastUpdated: now,
			Instances: []InstanceState{
				{Endpoint: "10.0.0.1:8080", Status: "healthy", Version: "1.2.0", LastHealthCheck: &now},
			},
		},
	}
	require.NoError(t, SaveState(dir, states))

	loaded, err := LoadState(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "checkout-api", loaded[0].Service)
	assert.Equal(t, "1.2.0", loaded[0].Version)
	require.Len(t, loaded[0].Instances, 1)
	assert.Equal(t, "10.0.0.1:8080", loaded[0].Instances[0].Endpoint)
	assert.True(t, now.Equal(*loaded[0].Instances[0].LastHealthCheck))
}

func TestSaveStateCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	require.NoError(t, SaveState(dir, []ServiceState{{Service: "billing-api"}}))

	loaded, err := LoadState(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "billing-api", loaded[0].Service)
}

func TestUpsertServiceReplacesExistingEntry(t *testing.T) {
	states := []ServiceState{
		{Service: "checkout-api", Version: "1.0.0"},
		{Service: "billing-api", Version: "2.0.0"},
	}

	states = UpsertService(states, ServiceState{Service: "checkout-api", Version: "1.1.0"})

	require.Len(t, states, 2)
	assert.Equal(t, "1.1.0", states[0].Version)
	assert.Equal(t, "billing-api", states[1].Service)
}

func TestUpsertServiceAppendsNewEntry(t *testing.T) {
	states := []ServiceState{{Service: "checkout-api", Version: "1.0.0"}}

	states = UpsertService(states, ServiceState{Service: "billing-api", Version: "1.0.0"})

	require.Len(t, states, 2)
	assert.Equal(t, "billing-api", states[1].Service)
}
