// Package configs loads the gas station's configuration from environment
// variables (spec.md §6's External Interfaces), with an optional YAML
// overlay file for per-deployment network-profile tuning.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	gasstation "github.com/tron-gas-station/gasstation"
	"github.com/tron-gas-station/gasstation/pkg/delegator"
	"github.com/tron-gas-station/gasstation/pkg/oracle"
	"github.com/tron-gas-station/gasstation/pkg/signer"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

// Config is the process-level configuration, sourced from env vars per
// spec.md §6. ProfileOverlayFile, when set, points at a YAML file overriding
// the network-profile fallback constants below.
type Config struct {
	Network          gasstation.NetworkKind
	LocalNodeEnabled bool
	FullNodeURLs     []string
	SolidityNodeURLs []string
	RemoteURLs       []string

	PoolWalletAddress      string
	OwnerPrivateKeyHex     string // discouraged; empty when control-only
	ControlPrivateKeyHex   string
	ControlPermissionID    uint8
	ControlFallbackToOwner bool
	ControlAllowedOps      map[string]bool

	ActivationMode gasstation.ActivationMode

	TargetEnergyUnits                uint64
	USDTEnergyPerTransferEstimate    uint64
	USDTBandwidthPerTransferEstimate uint64
	EnergyUnitsPerTRXEstimate        float64
	BandwidthUnitsPerTRXEstimate     float64
	DelegationSafetyMultiplier       float64
	MinDelegateTRX                   uint64

	ProfileOverlayFile string
}

// ProfileOverlay is the optional YAML file named by GAS_STATION_PROFILE_FILE
// (spec.md §9 Design Notes), used to override the network-profile fallback
// constants without redeploying with new env vars.
type ProfileOverlay struct {
	USDTContract            string  `yaml:"usdt_contract"`
	ActivationCostTRX       float64 `yaml:"activation_cost_trx"`
	EnergyPerTRXFallback    float64 `yaml:"energy_per_trx_fallback"`
	BandwidthPerTRXFallback float64 `yaml:"bandwidth_per_trx_fallback"`
	BandwidthYieldFloor     float64 `yaml:"bandwidth_yield_floor"`
}

// Load reads Config from the environment, applying spec.md §6's documented
// defaults for every knob that has one.
func Load() (*Config, error) {
	network := gasstation.NetworkKind(getEnv("TRON_NETWORK", "testnet"))
	if network != gasstation.Mainnet && network != gasstation.Testnet {
		return nil, fmt.Errorf("configs: TRON_NETWORK must be mainnet or testnet, got %q", network)
	}

	poolWallet := os.Getenv("GAS_WALLET_ADDRESS")
	if poolWallet == "" {
		return nil, fmt.Errorf("configs: GAS_WALLET_ADDRESS is required")
	}

	mode := gasstation.ActivationMode(getEnv("GAS_ACCOUNT_ACTIVATION_MODE", string(gasstation.ActivationTransfer)))
	if mode != gasstation.ActivationTransfer && mode != gasstation.ActivationCreateAccount {
		return nil, fmt.Errorf("configs: GAS_ACCOUNT_ACTIVATION_MODE must be transfer or create_account, got %q", mode)
	}

	permissionID, err := getEnvUint8("GAS_WALLET_CONTROL_PERMISSION_ID", 2)
	if err != nil {
		return nil, err
	}
	fallback, err := getEnvBool("GAS_CONTROL_FALLBACK_TO_OWNER", true)
	if err != nil {
		return nil, err
	}
	localEnabled, err := getEnvBool("TRON_LOCAL_NODE_ENABLED", true)
	if err != nil {
		return nil, err
	}

	targetEnergy, err := getEnvUint64("TARGET_ENERGY_UNITS", 90_000)
	if err != nil {
		return nil, err
	}
	usdtEnergy, err := getEnvUint64("USDT_ENERGY_PER_TRANSFER_ESTIMATE", 14_650)
	if err != nil {
		return nil, err
	}
	usdtBandwidth, err := getEnvUint64("USDT_BANDWIDTH_PER_TRANSFER_ESTIMATE", 345)
	if err != nil {
		return nil, err
	}
	energyPerTRX, err := getEnvFloat("ENERGY_UNITS_PER_TRX_ESTIMATE", 2.38)
	if err != nil {
		return nil, err
	}
	bandwidthPerTRX, err := getEnvFloat("BANDWIDTH_UNITS_PER_TRX_ESTIMATE", 200)
	if err != nil {
		return nil, err
	}
	safety, err := getEnvFloat("DELEGATION_SAFETY_MULTIPLIER", 1.15)
	if err != nil {
		return nil, err
	}
	minDelegate, err := getEnvUint64("MIN_DELEGATE_TRX", 1)
	if err != nil {
		return nil, err
	}

	return &Config{
		Network:          network,
		LocalNodeEnabled: localEnabled,
		FullNodeURLs:     splitEnv(getEnv(fullNodeEnvKey(network), "")),
		SolidityNodeURLs: splitEnv(getEnv(solidityNodeEnvKey(network), "")),
		RemoteURLs:       splitEnv(os.Getenv("TRON_REMOTE_FALLBACK_URLS")),

		PoolWalletAddress:      poolWallet,
		OwnerPrivateKeyHex:     os.Getenv("GAS_WALLET_PRIVATE_KEY"),
		ControlPrivateKeyHex:   os.Getenv("GAS_WALLET_CONTROL_PRIVATE_KEY"),
		ControlPermissionID:    permissionID,
		ControlFallbackToOwner: fallback,
		ControlAllowedOps:      defaultControlAllowedOps(),

		ActivationMode: mode,

		TargetEnergyUnits:                targetEnergy,
		USDTEnergyPerTransferEstimate:    usdtEnergy,
		USDTBandwidthPerTransferEstimate: usdtBandwidth,
		EnergyUnitsPerTRXEstimate:        energyPerTRX,
		BandwidthUnitsPerTRXEstimate:     bandwidthPerTRX,
		DelegationSafetyMultiplier:       safety,
		MinDelegateTRX:                   minDelegate,

		ProfileOverlayFile: os.Getenv("GAS_STATION_PROFILE_FILE"),
	}, nil
}

// defaultControlAllowedOps is the conservative operation set a freshly
// configured control key is assumed to carry; deployments narrow or widen
// this by editing the active permission on-chain, not via env vars (spec.md
// §4.5 treats the allow-set as chain-configured, not locally declared).
func defaultControlAllowedOps() map[string]bool {
	return map[string]bool{
		"TransferContract": true,
		"FreezeBalanceV2":  true,
		"DelegateResource": true,
	}
}

// ToNetworkProfile builds the immutable NetworkProfile, applying the
// optional YAML overlay (spec.md §9, DESIGN.md Open Question 1) on top of
// the per-network hardcoded USDT contract defaults.
func (c *Config) ToNetworkProfile() (gasstation.NetworkProfile, error) {
	profile := defaultNetworkProfile(c.Network)
	profile.EnergyPerTRXFallback = c.EnergyUnitsPerTRXEstimate
	profile.BandwidthPerTRXFallback = c.BandwidthUnitsPerTRXEstimate

	if c.ProfileOverlayFile != "" {
		overlay, err := loadProfileOverlay(c.ProfileOverlayFile)
		if err != nil {
			return gasstation.NetworkProfile{}, err
		}
		applyOverlay(&profile, overlay)
	}
	return profile, nil
}

// defaultNetworkProfile returns spec.md §9's per-network USDT contract and
// activation cost defaults (DESIGN.md Open Question 1).
func defaultNetworkProfile(network gasstation.NetworkKind) gasstation.NetworkProfile {
	if network == gasstation.Mainnet {
		return gasstation.NetworkProfile{
			Kind:                network,
			USDTContract:        "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			ActivationCostTRX:   1.5,
			BandwidthYieldFloor: 50,
		}
	}
	return gasstation.NetworkProfile{
		Kind:                network,
		USDTContract:        "TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs",
		ActivationCostTRX:   1.0,
		BandwidthYieldFloor: 200,
	}
}

func loadProfileOverlay(path string) (*ProfileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configs: read profile overlay: %w", err)
	}
	var overlay ProfileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("configs: parse profile overlay: %w", err)
	}
	return &overlay, nil
}

func applyOverlay(profile *gasstation.NetworkProfile, overlay *ProfileOverlay) {
	if overlay.USDTContract != "" {
		profile.USDTContract = overlay.USDTContract
	}
	if overlay.ActivationCostTRX > 0 {
		profile.ActivationCostTRX = overlay.ActivationCostTRX
	}
	if overlay.EnergyPerTRXFallback > 0 {
		profile.EnergyPerTRXFallback = overlay.EnergyPerTRXFallback
	}
	if overlay.BandwidthPerTRXFallback > 0 {
		profile.BandwidthPerTRXFallback = overlay.BandwidthPerTRXFallback
	}
	if overlay.BandwidthYieldFloor > 0 {
		profile.BandwidthYieldFloor = overlay.BandwidthYieldFloor
	}
}

// ToStationConfig builds gasstation.StationConfig plus its delegation and
// oracle wiring. PreparationTimeout defaults to 60s (spec.md §4.1).
func (c *Config) ToStationConfig() gasstation.StationConfig {
	return gasstation.StationConfig{
		PoolWallet:             c.PoolWalletAddress,
		ActivationMode:         c.ActivationMode,
		CreateAccountSupported: c.LocalNodeEnabled,
		Delegation: delegator.Config{
			EnergySafety:      c.DelegationSafetyMultiplier,
			EnergyMarginUnits: delegator.DefaultConfig().EnergyMarginUnits,
			ETarget:           c.TargetEnergyUnits,
			BandwidthSafety:   c.DelegationSafetyMultiplier,
			BMin:              delegator.DefaultConfig().BMin,
			LockDays:          3,
		},
		OracleFallbacks: oracle.Fallbacks{
			EnergyPerTRX:    c.EnergyUnitsPerTRXEstimate,
			BandwidthPerTRX: c.BandwidthUnitsPerTRXEstimate,
			Testnet:         c.Network == gasstation.Testnet,
			BandwidthFloor:  c.BandwidthUnitsPerTRXEstimate,
		},
		PreparationTimeout: 60 * time.Second,
	}
}

// ToTronClientConfig builds the tronclient.Config from the resolved
// endpoint groups.
func (c *Config) ToTronClientConfig() tronclient.Config {
	return tronclient.Config{
		FullNodeURLs:     c.FullNodeURLs,
		SolidityNodeURLs: c.SolidityNodeURLs,
		RemoteURLs:       c.RemoteURLs,
		Timeout:          10 * time.Second,
		Retries:          3,
	}
}

// ToSignerConfig builds signer.Config from the configured key material.
// The caller is expected to have parsed ControlPrivateKeyHex/
// OwnerPrivateKeyHex into signer.Key values beforehand (key parsing touches
// hex/crypto, not env parsing, so it lives with cmd/gasstationd's wiring).
func (c *Config) ToSignerConfig(control, owner *signer.Key) signer.Config {
	mode := signer.ControlOnly
	switch {
	case control == nil:
		mode = signer.OwnerOnly
	case c.ControlFallbackToOwner && owner != nil:
		mode = signer.ControlWithOwnerFallback
	}
	return signer.Config{
		Mode:           mode,
		Control:        control,
		Owner:          owner,
		PermissionID:   c.ControlPermissionID,
		ControlAllowed: c.ControlAllowedOps,
	}
}

func fullNodeEnvKey(network gasstation.NetworkKind) string {
	if network == gasstation.Mainnet {
		return "TRON_MAINNET_FULL_NODE_URLS"
	}
	return "TRON_TESTNET_FULL_NODE_URLS"
}

func solidityNodeEnvKey(network gasstation.NetworkKind) string {
	if network == gasstation.Mainnet {
		return "TRON_MAINNET_SOLIDITY_NODE_URLS"
	}
	return "TRON_TESTNET_SOLIDITY_NODE_URLS"
}

func splitEnv(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("configs: %s: %w", key, err)
	}
	return b, nil
}

func getEnvUint64(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("configs: %s: %w", key, err)
	}
	return n, nil
}

func getEnvUint8(key string, fallback uint8) (uint8, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("configs: %s: %w", key, err)
	}
	return uint8(n), nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("configs: %s: %w", key, err)
	}
	return f, nil
}
