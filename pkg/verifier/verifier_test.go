package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tron-gas-station/gasstation/pkg/domain"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

func TestBaselineReadsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/wallet/getaccount":
			json.NewEncoder(w).Encode(map[string]interface{}{"address": "41abc", "balance": 1})
		case "/wallet/getaccountresource":
			json.NewEncoder(w).Encode(map[string]interface{}{"EnergyLimit": 20_000, "EnergyUsed": 1_000, "freeNetLimit": 500, "freeNetUsed": 0})
		}
	}))
	defer srv.Close()

	client := tronclient.New(tronclient.Config{FullNodeURLs: []string{srv.URL}, Timeout: time.Second, Retries: 1})
	v := New(client)

	snap, err := v.Baseline(context.Background(), "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	assert.NoError(t, err)
	assert.True(t, snap.Activated)
	assert.EqualValues(t, 19_000, snap.EnergyAvailable)
}

// Testable Property 5 (parallel_max) is exercised directly in
// pkg/tronclient; here we exercise WaitForIncrease's early-accept rule.
func TestWaitForIncreaseAcceptsEarly(t *testing.T) {
	energy := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/wallet/getaccount":
			json.NewEncoder(w).Encode(map[string]interface{}{"address": "41abc", "balance": 1})
		case "/wallet/getaccountresource":
			energy += 10_000
			json.NewEncoder(w).Encode(map[string]interface{}{"EnergyLimit": energy, "EnergyUsed": 0})
		}
	}))
	defer srv.Close()

	client := tronclient.New(tronclient.Config{FullNodeURLs: []string{srv.URL}, Timeout: time.Second, Retries: 1})
	v := New(client)

	baseline := domain.ResourceSnapshot{EnergyAvailable: 10_000}
	snap, ok := v.WaitForIncrease(context.Background(), "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH", domain.ResourceEnergy, baseline)
	assert.True(t, ok)
	assert.Greater(t, snap.EnergyAvailable, uint64(10_000))
}

func TestWaitForIncreaseTimesOutWhenFlat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/wallet/getaccount":
			json.NewEncoder(w).Encode(map[string]interface{}{"address": "41abc", "balance": 1})
		case "/wallet/getaccountresource":
			json.NewEncoder(w).Encode(map[string]interface{}{"EnergyLimit": 10_000, "EnergyUsed": 0})
		}
	}))
	defer srv.Close()

	client := tronclient.New(tronclient.Config{FullNodeURLs: []string{srv.URL}, Timeout: time.Second, Retries: 1})
	v := New(client)

	baseline := domain.ResourceSnapshot{EnergyAvailable: 10_000}
	_, ok := v.WaitForIncrease(context.Background(), "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH", domain.ResourceEnergy, baseline)
	assert.False(t, ok)
}
