package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registries.toml")
	content := `
[registries.prod]
base_url = "https://registry.prod.internal"
namespace = "policies"
auth_kind = "bearer"
token = "tok-abc"
request_timeout_seconds = 30
max_retries = 3

[registries.staging]
base_url = "https://registry.staging.internal"
auth_kind = "basic"
username = "deployer"
password = "hunter2"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	configs, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Contains(t, configs, "prod")
	require.Contains(t, configs, "staging")

	prod := configs["prod"]
	assert.Equal(t, "https://registry.prod.internal", prod.BaseURL)
	assert.Equal(t, "policies", prod.Namespace)
	assert.Equal(t, AuthBearer, prod.Auth.Kind)
	assert.Equal(t, "tok-abc", prod.Auth.Token)
	assert.Equal(t, 3, prod.MaxRetries)

	staging := configs["staging"]
	assert.Equal(t, AuthBasic, staging.Auth.Kind)
	assert.Equal(t, "deployer", staging.Auth.Username)
}

func TestLoadConfigFileRejectsMissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
