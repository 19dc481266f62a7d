package delegator

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tron-gas-station/gasstation/pkg/signer"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
	"github.com/tron-gas-station/gasstation/pkg/verifier"
)

func TestUnitsNeededEnergyFloorsAtETarget(t *testing.T) {
	cfg := DefaultConfig()
	// small used value should floor at ETarget, not the safety-scaled value
	got := unitsNeeded(1_000, cfg.EnergySafety, cfg.EnergyMarginUnits, cfg.ETarget)
	assert.EqualValues(t, cfg.ETarget, got)
}

func TestUnitsNeededEnergyScalesAboveFloor(t *testing.T) {
	cfg := DefaultConfig()
	got := unitsNeeded(100_000, cfg.EnergySafety, cfg.EnergyMarginUnits, cfg.ETarget)
	assert.EqualValues(t, 120_000, got) // ceil(100000*1.15) + 5000
}

func TestUnitsNeededBandwidthFloorsAtBMin(t *testing.T) {
	cfg := DefaultConfig()
	got := unitsNeeded(10, cfg.BandwidthSafety, 0, cfg.BMin)
	assert.EqualValues(t, cfg.BMin, got)
}

func TestTRXToFreezeFloorsAtOneTRX(t *testing.T) {
	got := trxToFreezeSun(100, 1_000_000) // tiny requirement, huge yield
	assert.EqualValues(t, 1_000_000, got)
}

func TestTRXToFreezeScalesWithYield(t *testing.T) {
	got := trxToFreezeSun(200_000, 2.38) // energy_per_trx fallback
	assert.Greater(t, got, uint64(1_000_000))
}

func TestTRXToFreezeHandlesZeroYield(t *testing.T) {
	got := trxToFreezeSun(50_000, 0)
	assert.EqualValues(t, 1_000_000, got)
}

func randomKey(t *testing.T) *signer.Key {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	assert.NoError(t, err)
	k, err := signer.NewKey(raw)
	assert.NoError(t, err)
	return k
}

func newSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.New(signer.Config{
		Mode:           signer.ControlOnly,
		Control:        randomKey(t),
		PermissionID:   2,
		ControlAllowed: map[string]bool{"FreezeBalanceV2": true, "DelegateResource": true},
	})
	assert.NoError(t, err)
	return s
}

// server fakes freezebalancev2/delegateresource/broadcasttransaction/
// getaccountresource. Energy available jumps after the first broadcast (the
// freeze leg), exercising the early-success poll path.
func server(t *testing.T) *httptest.Server {
	t.Helper()
	delegated := false
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/wallet/freezebalancev2", "/wallet/delegateresource":
			json.NewEncoder(w).Encode(map[string]interface{}{"txID": "tx1", "raw_data_hex": "aabbcc"})
		case "/wallet/broadcasttransaction":
			delegated = true
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true, "txid": "tx1"})
		case "/wallet/getaccountresource":
			if delegated {
				json.NewEncoder(w).Encode(map[string]interface{}{"EnergyLimit": 100_000, "EnergyUsed": 0})
			} else {
				json.NewEncoder(w).Encode(map[string]interface{}{"EnergyLimit": 0, "EnergyUsed": 0})
			}
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{})
		}
	}))
}

func TestDelegateBroadcastsFreezeThenDelegate(t *testing.T) {
	srv := server(t)
	defer srv.Close()

	client := tronclient.New(tronclient.Config{FullNodeURLs: []string{srv.URL}, Timeout: time.Second, Retries: 1})
	d := New(client, newSigner(t), DefaultConfig())

	out, err := d.Delegate(context.Background(), "Towner", "Treceiver", tronclient.ResourceEnergy, 120_000, 1_000_000)
	assert.NoError(t, err)
	assert.True(t, out.BroadcastOK)
	assert.Equal(t, "tx1", out.TxID)
}

// TestDelegateThenVerifierObservesIncrease composes Delegate with
// pkg/verifier the way the orchestrator does: broadcast under the
// pool-wallet lock, then wait for the increase outside of it.
func TestDelegateThenVerifierObservesIncrease(t *testing.T) {
	srv := server(t)
	defer srv.Close()

	client := tronclient.New(tronclient.Config{FullNodeURLs: []string{srv.URL}, Timeout: time.Second, Retries: 1})
	d := New(client, newSigner(t), DefaultConfig())
	v := verifier.New(client)

	baseline, err := v.Baseline(context.Background(), "Treceiver")
	assert.NoError(t, err)

	out, err := d.Delegate(context.Background(), "Towner", "Treceiver", tronclient.ResourceEnergy, 120_000, 1_000_000)
	assert.NoError(t, err)
	assert.True(t, out.BroadcastOK)

	final, ok := v.WaitForIncrease(context.Background(), "Treceiver", out.Resource, baseline)
	assert.True(t, ok)
	assert.Greater(t, final.EnergyAvailable, baseline.EnergyAvailable)
}
