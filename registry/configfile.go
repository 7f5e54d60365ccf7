package registry

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// fileConfig is the TOML shape of a registry endpoint configuration file:
// one [registries.<name>] table per named registry endpoint.
type fileConfig struct {
	Registries map[string]registryEntry `toml:"registries"`
}

type registryEntry struct {
	BaseURL           string `toml:"base_url"`
	Namespace         string `toml:"namespace"`
	AuthKind          string `toml:"auth_kind"`
	Username          string `toml:"username"`
	Password          string `toml:"password"`
	Token             string `toml:"token"`
	CredentialHelper  string `toml:"credential_helper"`
	RequestTimeoutSec int    `toml:"request_timeout_seconds"`
	MaxRetries        int    `toml:"max_retries"`
}

// LoadConfigFile parses a TOML registry endpoint configuration file and
// returns one Config per named registry table.
func LoadConfigFile(path string) (map[string]Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, errors.Wrapf(err, "registry: decoding config file %q", path)
	}

	out := make(map[string]Config, len(fc.Registries))
	for name, entry := range fc.Registries {
		cfg := Config{
			BaseURL:        entry.BaseURL,
			Namespace:      entry.Namespace,
			Auth:           authFromEntry(entry),
			RequestTimeout: time.Duration(entry.RequestTimeoutSec) * time.Second,
			MaxRetries:     entry.MaxRetries,
		}
		validated, err := TryNewConfig(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "registry: invalid config for %q", name)
		}
		out[name] = validated
	}
	return out, nil
}

func authFromEntry(e registryEntry) AuthConfig {
	switch e.AuthKind {
	case "basic":
		return AuthConfig{Kind: AuthBasic, Username: e.Username, Password: e.Password, CredentialHelper: e.CredentialHelper, ServerURL: e.BaseURL}
	case "bearer":
		return AuthConfig{Kind: AuthBearer, Token: e.Token}
	case "aws_ecr":
		return AuthConfig{Kind: AuthAwsEcr}
	case "gcp_artifact":
		return AuthConfig{Kind: AuthGcpArtifact}
	default:
		return AuthConfig{Kind: AuthNone}
	}
}
