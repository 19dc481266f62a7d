package tronclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newSnapshotServer returns a server whose /wallet/getaccount and
// /wallet/getaccountresource responses are fixed, for exercising the
// multi-endpoint-max combinator (spec.md Testable Property 5).
func newSnapshotServer(t *testing.T, energy, bandwidth uint64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/wallet/getaccount":
			json.NewEncoder(w).Encode(map[string]interface{}{"address": "41abc", "balance": 1})
		case "/wallet/getaccountresource":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"EnergyLimit": energy, "EnergyUsed": 0,
				"NetLimit": bandwidth, "NetUsed": 0,
			})
		}
	}))
}

func TestReadSnapshotTakesMaxAcrossEndpoints(t *testing.T) {
	a := newSnapshotServer(t, 0, 0)
	defer a.Close()
	b := newSnapshotServer(t, 10_000, 0)
	defer b.Close()
	d := newSnapshotServer(t, 6_000, 0)
	defer d.Close()

	c := New(Config{
		FullNodeURLs:     []string{a.URL},
		SolidityNodeURLs: []string{b.URL},
		RemoteURLs:       []string{d.URL},
		Timeout:          time.Second,
		Retries:          1,
	})

	snap, err := c.ReadSnapshot(context.Background(), "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH")
	assert.NoError(t, err)
	assert.EqualValues(t, 10_000, snap.EnergyAvailable)
}
