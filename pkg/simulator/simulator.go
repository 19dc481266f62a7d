// Package simulator invokes constant-contract transfer(address,uint256) on
// the USDT contract to obtain the expected ENERGY cost and the exact
// serialized transaction byte length (BANDWIDTH), per spec.md §4.4.
package simulator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/tron-gas-station/gasstation/internal/tronaddr"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

// sigPlaceholderBytes is the flat per-signature placeholder spec.md §4.4
// requires when estimating bandwidth from a not-yet-signed transaction.
const sigPlaceholderBytes = 64

// Result mirrors spec.md §3's SimulationResult.
type Result struct {
	EnergyUsed                    uint64
	BandwidthUsed                 uint64
	WouldSucceed                  bool
	RecipientIsExistingUSDTHolder *bool
	UsedFallback                  bool
}

// Holder categorizes the recipient for the fallback estimate path.
type Holder int

const (
	HolderUnknown Holder = iota
	HolderExisting
	HolderNew
)

// fallback category-based estimates (spec.md §4.4).
const (
	fallbackExistingEnergy  = 32_000
	fallbackNewEnergy       = 65_000
	fallbackBandwidthUnits  = 345
)

// Simulate calls TriggerConstantContract for transfer(to, amount) on the
// USDT contract from "from", falling back to a category estimate when the
// node call fails or reports a failed simulation (spec.md §4.4).
func Simulate(ctx context.Context, client *tronclient.Client, from, to, usdtContract string, amountUSDT *big.Int, holder Holder) (Result, error) {
	toEVM, err := tronaddr.ToEVM(to)
	if err != nil {
		return fallback(holder), fmt.Errorf("simulator: %w", err)
	}
	selector, params, err := tronclient.EncodeTRC20Transfer(toEVM, amountUSDT)
	if err != nil {
		return fallback(holder), fmt.Errorf("simulator: %w", err)
	}

	call, err := client.TriggerConstantContract(ctx, from, usdtContract, selector, params)
	if err != nil {
		return fallback(holder), fmt.Errorf("simulator: trigger constant contract: %w", err)
	}
	if !call.WouldSucceed() {
		return fallback(holder), fmt.Errorf("simulator: simulation failed: %q", call.Result.Message)
	}

	energyUsed := uint64(0)
	if call.EnergyUsed > 0 {
		energyUsed = uint64(call.EnergyUsed)
	}
	bandwidthUsed := serializedLength(call.Transaction)

	return Result{
		EnergyUsed:                    energyUsed,
		BandwidthUsed:                 bandwidthUsed,
		WouldSucceed:                  call.WouldSucceed(),
		RecipientIsExistingUSDTHolder: classify(energyUsed),
	}, nil
}

// serializedLength returns the would-be signed transaction's serialized
// byte length: raw_data_hex is already the hex of the unsigned payload, so
// its byte length is half its hex-string length, plus one signature
// placeholder (spec.md §4.4: "64 bytes per active signature, flat").
func serializedLength(tx tronclient.RawTransaction) uint64 {
	raw := len(tx.RawDataHex) / 2
	if raw == 0 {
		return fallbackBandwidthUnits
	}
	return uint64(raw + sigPlaceholderBytes)
}

// classify implements spec.md §4.4's classification rule.
func classify(energyUsed uint64) *bool {
	v := energyUsed < 50_000
	return &v
}

// fallback returns the category-based estimate spec.md §4.4 specifies for
// when simulation itself cannot be performed (timeout, revert, non-existent
// from address).
func fallback(holder Holder) Result {
	energy := uint64(fallbackNewEnergy)
	var known *bool
	switch holder {
	case HolderExisting:
		energy = fallbackExistingEnergy
		v := true
		known = &v
	case HolderNew:
		energy = fallbackNewEnergy
		v := false
		known = &v
	}
	return Result{
		EnergyUsed:                    energy,
		BandwidthUsed:                 fallbackBandwidthUnits,
		WouldSucceed:                  true,
		RecipientIsExistingUSDTHolder: known,
		UsedFallback:                  true,
	}
}
