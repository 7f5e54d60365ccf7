package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// InstanceState is one instance's entry in the persisted CLI state file.
type InstanceState struct {
	Endpoint        string     `json:"endpoint"`
	Status          string     `json:"status"`
	Version         string     `json:"version,omitempty"`
	LastHealthCheck *time.Time `json:"last_health_check,omitempty"`
}

// ServiceState is one service's entry in deployments.json.
type ServiceState struct {
	Service     string          `json:"service"`
	Version     string          `json:"version"`
	Status      string          `json:"status"`
	LastUpdated time.Time       `json:"last_updated"`
	Instances   []InstanceState `json:"instances"`
}

const stateFileName = "deployments.json"

// LoadState reads "<dir>/deployments.json". A missing file is not an error:
// it yields an empty status list.
func LoadState(dir string) ([]ServiceState, error) {
	path := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "service: reading %q", path)
	}
	var states []ServiceState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, errors.Wrapf(err, "service: parsing %q", path)
	}
	return states, nil
}

// SaveState writes states to "<dir>/deployments.json", creating dir if
// necessary.
func SaveState(dir string, states []ServiceState) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "service: creating state dir %q", dir)
	}
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return errors.Wrap(err, "service: marshalling deployment state")
	}
	path := filepath.Join(dir, stateFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "service: writing %q", path)
	}
	return nil
}

// UpsertService replaces or appends svc's entry in states, keyed by
// service name.
func UpsertService(states []ServiceState, svc ServiceState) []ServiceState {
	for i, s := range states {
		if s.Service == svc.Service {
			states[i] = svc
			return states
		}
	}
	return append(states, svc)
}
