// Command gasstationd wires configuration, the TRON RPC client, the
// resource oracle and the signer into a gasstation.Station, then runs one
// of a handful of one-shot operations against it (spec.md §6's external
// interface; the gas station's unit of work is a single prepare_for_usdt
// call, not a continuously monitored position like the teacher's strategy
// loop).
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	gasstation "github.com/tron-gas-station/gasstation"
	"github.com/tron-gas-station/gasstation/configs"
	"github.com/tron-gas-station/gasstation/internal/db"
	"github.com/tron-gas-station/gasstation/pkg/signer"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

func main() {
	_ = godotenv.Load() // optional local .env, missing file is not an error

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configs: %v\n", err)
		os.Exit(1)
	}

	client := tronclient.New(cfg.ToTronClientConfig())

	s, err := buildSigner(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer: %v\n", err)
		os.Exit(1)
	}

	profile, err := cfg.ToNetworkProfile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configs: %v\n", err)
		os.Exit(1)
	}
	stationCfg := cfg.ToStationConfig()
	stationCfg.Profile = profile

	station, err := gasstation.New(client, s, stationCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gasstation: %v\n", err)
		os.Exit(1)
	}

	recorder := maybeRecorder()

	ctx := context.Background()
	switch os.Args[1] {
	case "prepare":
		runPrepare(ctx, station, recorder, args(2))
	case "dry-run":
		runDryRun(ctx, station, args(2))
	case "health":
		runHealth(ctx, station)
	case "status":
		runStatus(ctx, station)
	default:
		usage()
		os.Exit(2)
	}
}

func args(n int) []string {
	if len(os.Args) <= n {
		return nil
	}
	return os.Args[n:]
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gasstationd <prepare|dry-run|health|status> [address]")
}

// buildSigner parses the configured key material into signer.Key values and
// builds the Signer. Key parsing touches hex/crypto, not env parsing, so it
// lives here rather than in configs.Load (see DESIGN.md).
func buildSigner(cfg *configs.Config) (*signer.Signer, error) {
	var control, owner *signer.Key
	if cfg.ControlPrivateKeyHex != "" {
		k, err := parseKey(cfg.ControlPrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("control key: %w", err)
		}
		control = k
	}
	if cfg.OwnerPrivateKeyHex != "" {
		k, err := parseKey(cfg.OwnerPrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("owner key: %w", err)
		}
		owner = k
	}
	return signer.New(cfg.ToSignerConfig(control, owner))
}

func parseKey(hexKey string) (*signer.Key, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return signer.NewKey(raw)
}

// maybeRecorder wires the optional GORM audit sink when GAS_STATION_DSN is
// set. Absence is not an error; the core runs with no persistent state per
// spec.md §3.
func maybeRecorder() *db.Recorder {
	dsn := os.Getenv("GAS_STATION_DSN")
	if dsn == "" {
		return nil
	}
	recorder, err := db.NewRecorder(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit recorder disabled: %v\n", err)
		return nil
	}
	return recorder
}

func runPrepare(ctx context.Context, station *gasstation.Station, recorder *db.Recorder, addrs []string) {
	if len(addrs) == 0 {
		fmt.Fprintln(os.Stderr, "prepare requires a target address")
		os.Exit(2)
	}
	target := addrs[0]
	at := time.Now()

	result, err := station.PrepareForUSDT(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prepare_for_usdt: %v\n", err)
		os.Exit(1)
	}

	if recorder != nil {
		if recErr := recorder.RecordPreparation(target, at, *result); recErr != nil {
			fmt.Fprintf(os.Stderr, "audit recorder: %v\n", recErr)
		}
	}

	printJSON(result)
	if !result.Success {
		os.Exit(1)
	}
}

func runDryRun(ctx context.Context, station *gasstation.Station, addrs []string) {
	if len(addrs) == 0 {
		fmt.Fprintln(os.Stderr, "dry-run requires a target address")
		os.Exit(2)
	}
	out, err := station.DryRun(ctx, addrs[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "dry_run: %v\n", err)
		os.Exit(1)
	}
	printJSON(out)
}

func runHealth(ctx context.Context, station *gasstation.Station) {
	printJSON(station.Health(ctx))
}

func runStatus(ctx context.Context, station *gasstation.Station) {
	status, err := station.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		os.Exit(1)
	}
	printJSON(status)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
