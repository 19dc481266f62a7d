// Package oracle computes live units-per-TRX yields for ENERGY and
// BANDWIDTH from chain parameters, per spec.md §4.3. It is re-read once per
// preparation and never cached beyond that call.
package oracle

import "github.com/tron-gas-station/gasstation/pkg/tronclient"

// Fallbacks carries the NetworkProfile constants the Oracle falls back to
// when live chain parameters are unavailable (spec.md §4.3, §9).
type Fallbacks struct {
	EnergyPerTRX      float64 // mainnet long-run constant, e.g. 2.38
	BandwidthPerTRX   float64
	Testnet           bool
	BandwidthFloor    float64 // last-resort value when no chain parameter and no BandwidthPerTRX is available
}

// Yields is the Oracle's output for one preparation call.
type Yields struct {
	EnergyPerTRX    float64
	BandwidthPerTRX float64
}

// Compute derives EnergyPerTRX and BandwidthPerTRX from chain parameters,
// applying spec.md §4.3's fallback chain and testnet floor.
func Compute(params tronclient.ChainParameters, fb Fallbacks) Yields {
	return Yields{
		EnergyPerTRX:    energyPerTRX(params, fb),
		BandwidthPerTRX: bandwidthPerTRX(params, fb),
	}
}

// energyPerTRX: from chain param getEnergyFee (SUN per energy unit),
// energy_per_trx = 1_000_000 / energy_fee. Falls back to fb.EnergyPerTRX
// (default 2.38 on mainnet) when the parameter is absent or non-positive.
func energyPerTRX(params tronclient.ChainParameters, fb Fallbacks) float64 {
	if fee, ok := params["getEnergyFee"]; ok && fee > 0 {
		return 1_000_000.0 / float64(fee)
	}
	if fb.EnergyPerTRX > 0 {
		return fb.EnergyPerTRX
	}
	return 2.38
}

// bandwidthPerTRX prefers the dynamic totalNetLimit/totalNetWeight ratio,
// falls back to a bandwidth_fee-derived value, then a configured floor, and
// finally applies the testnet anomaly floor of 200 when the computed value
// falls below 50 (spec.md §4.3, Testable Property 7).
func bandwidthPerTRX(params tronclient.ChainParameters, fb Fallbacks) float64 {
	var raw float64
	limit, hasLimit := params["totalNetLimit"]
	weight, hasWeight := params["totalNetWeight"]
	switch {
	case hasLimit && hasWeight && weight > 0:
		raw = float64(limit) / float64(weight)
	case params["getTransactionFee"] > 0:
		raw = 1_000_000.0 / float64(params["getTransactionFee"])
	case fb.BandwidthPerTRX > 0:
		raw = fb.BandwidthPerTRX
	default:
		raw = fb.BandwidthFloor
	}

	if fb.Testnet && raw < 50 {
		return 200
	}
	return raw
}
