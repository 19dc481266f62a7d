package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	gasstation "github.com/tron-gas-station/gasstation"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRON_NETWORK", "TRON_LOCAL_NODE_ENABLED",
		"TRON_TESTNET_FULL_NODE_URLS", "TRON_TESTNET_SOLIDITY_NODE_URLS",
		"TRON_MAINNET_FULL_NODE_URLS", "TRON_MAINNET_SOLIDITY_NODE_URLS",
		"TRON_REMOTE_FALLBACK_URLS",
		"GAS_WALLET_ADDRESS", "GAS_WALLET_PRIVATE_KEY",
		"GAS_WALLET_CONTROL_PRIVATE_KEY", "GAS_WALLET_CONTROL_PERMISSION_ID",
		"GAS_CONTROL_FALLBACK_TO_OWNER", "GAS_ACCOUNT_ACTIVATION_MODE",
		"TARGET_ENERGY_UNITS",
		"USDT_ENERGY_PER_TRANSFER_ESTIMATE", "USDT_BANDWIDTH_PER_TRANSFER_ESTIMATE",
		"ENERGY_UNITS_PER_TRX_ESTIMATE", "BANDWIDTH_UNITS_PER_TRX_ESTIMATE",
		"DELEGATION_SAFETY_MULTIPLIER", "MIN_DELEGATE_TRX",
		"GAS_STATION_PROFILE_FILE",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadRequiresPoolWallet(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("GAS_WALLET_ADDRESS", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	defer clearEnv(t)

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, gasstation.Testnet, cfg.Network)
	assert.EqualValues(t, 90_000, cfg.TargetEnergyUnits)
	assert.EqualValues(t, 2, cfg.ControlPermissionID)
	assert.True(t, cfg.ControlFallbackToOwner)
	assert.Equal(t, gasstation.ActivationTransfer, cfg.ActivationMode)
}

func TestLoadRejectsUnknownNetwork(t *testing.T) {
	clearEnv(t)
	os.Setenv("GAS_WALLET_ADDRESS", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	os.Setenv("TRON_NETWORK", "devnet")
	defer clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadParsesNodeURLLists(t *testing.T) {
	clearEnv(t)
	os.Setenv("GAS_WALLET_ADDRESS", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	os.Setenv("TRON_TESTNET_FULL_NODE_URLS", "https://a.example,https://b.example")
	defer clearEnv(t)

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.FullNodeURLs)
}

func TestToNetworkProfileDefaultsPerNetwork(t *testing.T) {
	clearEnv(t)
	os.Setenv("GAS_WALLET_ADDRESS", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	os.Setenv("TRON_NETWORK", "mainnet")
	defer clearEnv(t)

	cfg, err := Load()
	assert.NoError(t, err)
	profile, err := cfg.ToNetworkProfile()
	assert.NoError(t, err)
	assert.Equal(t, gasstation.Mainnet, profile.Kind)
	assert.Equal(t, 1.5, profile.ActivationCostTRX)
}

func TestToNetworkProfileAppliesYAMLOverlay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	overlayPath := filepath.Join(dir, "profile.yml")
	assert.NoError(t, os.WriteFile(overlayPath, []byte("usdt_contract: TXoverride\nactivation_cost_trx: 2.5\n"), 0o644))

	os.Setenv("GAS_WALLET_ADDRESS", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	os.Setenv("GAS_STATION_PROFILE_FILE", overlayPath)
	defer clearEnv(t)

	cfg, err := Load()
	assert.NoError(t, err)
	profile, err := cfg.ToNetworkProfile()
	assert.NoError(t, err)
	assert.Equal(t, "TXoverride", profile.USDTContract)
	assert.Equal(t, 2.5, profile.ActivationCostTRX)
}

func TestToStationConfigCarriesDelegationConstants(t *testing.T) {
	clearEnv(t)
	os.Setenv("GAS_WALLET_ADDRESS", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	os.Setenv("TARGET_ENERGY_UNITS", "75000")
	defer clearEnv(t)

	cfg, err := Load()
	assert.NoError(t, err)
	stationCfg := cfg.ToStationConfig()
	assert.EqualValues(t, 75_000, stationCfg.Delegation.ETarget)
	assert.EqualValues(t, 350, stationCfg.Delegation.BMin)
	assert.Equal(t, cfg.PoolWalletAddress, stationCfg.PoolWallet)
}
