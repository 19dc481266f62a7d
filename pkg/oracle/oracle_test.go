package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

func TestEnergyPerTRXFromChainParams(t *testing.T) {
	params := tronclient.ChainParameters{"getEnergyFee": 420}
	y := Compute(params, Fallbacks{EnergyPerTRX: 2.38})
	assert.InDelta(t, 1_000_000.0/420.0, y.EnergyPerTRX, 0.0001)
}

func TestEnergyPerTRXFallback(t *testing.T) {
	y := Compute(tronclient.ChainParameters{}, Fallbacks{EnergyPerTRX: 2.38})
	assert.Equal(t, 2.38, y.EnergyPerTRX)
}

func TestBandwidthPerTRXDynamic(t *testing.T) {
	params := tronclient.ChainParameters{"totalNetLimit": 43_200_000_000, "totalNetWeight": 568_000_000}
	y := Compute(params, Fallbacks{})
	assert.InDelta(t, 76.05, y.BandwidthPerTRX, 1)
}

// Testable Property 7: testnet bandwidth floor.
func TestTestnetBandwidthFloor(t *testing.T) {
	params := tronclient.ChainParameters{"totalNetLimit": 10, "totalNetWeight": 1}
	y := Compute(params, Fallbacks{Testnet: true})
	assert.Equal(t, 200.0, y.BandwidthPerTRX)
}

func TestMainnetDoesNotApplyFloor(t *testing.T) {
	params := tronclient.ChainParameters{"totalNetLimit": 10, "totalNetWeight": 1}
	y := Compute(params, Fallbacks{Testnet: false})
	assert.Equal(t, 10.0, y.BandwidthPerTRX)
}
