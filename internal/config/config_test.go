package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, `
rpc_url = "https://rpc.example"
contract_address = "0xdeadbeef"
store_url = "postgres://localhost/dispatcher"
account_keys = ["key1"]
recovery_account_keys = ["key2"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 200, int(cfg.QueueProcessIntervalMS))
	require.Equal(t, 5, cfg.FaultThreshold)
	require.Equal(t, 5, cfg.RecoveryBatch)
	require.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadRejectsMissingMandatoryFields(t *testing.T) {
	path := writeTemp(t, `rpc_url = "https://rpc.example"`)
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, dispatchererr.Is(err, dispatchererr.ConfigInvalid))
}

func TestLoadEnvOverridesFileValue(t *testing.T) {
	path := writeTemp(t, `
rpc_url = "https://rpc.example"
contract_address = "0xdeadbeef"
store_url = "postgres://localhost/dispatcher"
account_keys = ["key1"]
recovery_account_keys = ["key2"]
`)
	t.Setenv("DISPATCHER_RPC_URL", "https://override.example")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://override.example", cfg.RPCURL)
}
