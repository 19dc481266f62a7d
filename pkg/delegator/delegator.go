// Package delegator sizes, builds, signs and broadcasts the
// FreezeBalanceV2+DelegateResource pair for ENERGY then BANDWIDTH, per
// spec.md §4.7.
package delegator

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/tron-gas-station/gasstation/internal/hexsig"
	"github.com/tron-gas-station/gasstation/pkg/domain"
	"github.com/tron-gas-station/gasstation/pkg/signer"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

// Config holds the sizing constants spec.md §4.7 names.
type Config struct {
	EnergySafety      float64 // 1.15
	EnergyMarginUnits uint64  // 5 000
	ETarget           uint64  // 90 000 floor, config-overridable
	BandwidthSafety   float64 // 1.25
	BMin              uint64  // 350 floor
	LockDays          int     // 3, network minimum
}

// DefaultConfig returns spec.md §4.7's historical constants.
func DefaultConfig() Config {
	return Config{
		EnergySafety:      1.15,
		EnergyMarginUnits: 5_000,
		ETarget:           90_000,
		BandwidthSafety:   1.25,
		BMin:              350,
		LockDays:          3,
	}
}

// Delegator executes spec.md §4.7's freeze-and-delegate sequence.
type Delegator struct {
	client *tronclient.Client
	signer *signer.Signer
	cfg    Config
}

// New builds a Delegator.
func New(client *tronclient.Client, s *signer.Signer, cfg Config) *Delegator {
	return &Delegator{client: client, signer: s, cfg: cfg}
}

// Plan computes spec.md §4.7 steps 1-2 for both resources, given simulation
// outputs and the oracle's live per-TRX yields.
func (d *Delegator) Plan(energyUsed, bandwidthUsed uint64, energyPerTRX, bandwidthPerTRX float64) domain.DelegationPlan {
	needEnergy := unitsNeeded(float64(energyUsed), d.cfg.EnergySafety, d.cfg.EnergyMarginUnits, d.cfg.ETarget)
	needBandwidth := unitsNeeded(float64(bandwidthUsed), d.cfg.BandwidthSafety, 0, d.cfg.BMin)
	return domain.DelegationPlan{
		NeedEnergyUnits:      needEnergy,
		NeedBandwidthUnits:   needBandwidth,
		EnergyTRXToFreeze:    trxToFreezeSun(needEnergy, energyPerTRX),
		BandwidthTRXToFreeze: trxToFreezeSun(needBandwidth, bandwidthPerTRX),
	}
}

// unitsNeeded implements spec.md §4.7 step 1: safety-scaled requirement,
// plus a flat margin, floored at a resource-specific minimum.
func unitsNeeded(used, safety float64, margin, floor uint64) uint64 {
	scaled := uint64(math.Ceil(used*safety)) + margin
	if scaled < floor {
		return floor
	}
	return scaled
}

// trxToFreezeSun implements spec.md §4.7 step 2, guarding against a
// zero/negative yield (oracle outage) by falling back to the 1 TRX floor
// alone.
func trxToFreezeSun(unitsNeeded uint64, unitsPerTRX float64) uint64 {
	const minSun = 1_000_000
	if unitsPerTRX <= 0 {
		return minSun
	}
	needed := uint64(math.Ceil(float64(unitsNeeded) / unitsPerTRX * 1_000_000))
	if needed < minSun {
		return minSun
	}
	return needed
}

// Delegate runs spec.md §4.7 steps 3-4 for one resource: build freeze, sign,
// broadcast; build delegate, sign, broadcast. It performs no verification —
// callers use pkg/verifier's lag-tolerant WaitForIncrease against the
// returned outcome, per spec.md §5's rule that the pool-wallet lock is held
// only for build+sign+broadcast, never during verification.
func (d *Delegator) Delegate(ctx context.Context, owner, receiver string, resource tronclient.Resource, unitsRequested, trxToFreezeSun uint64) (domain.DelegationOutcome, error) {
	freezeTx, err := d.client.BuildFreezeBalanceV2(ctx, owner, trxToFreezeSun, resource)
	if err != nil {
		return domain.DelegationOutcome{}, fmt.Errorf("delegator: build freeze %s: %w", resource, err)
	}
	if err := d.signAndBroadcast(ctx, "FreezeBalanceV2", freezeTx); err != nil {
		return domain.DelegationOutcome{}, fmt.Errorf("delegator: freeze %s: %w", resource, err)
	}

	delegateTx, err := d.client.BuildDelegateResource(ctx, owner, receiver, trxToFreezeSun, resource, d.cfg.LockDays)
	if err != nil {
		return domain.DelegationOutcome{}, fmt.Errorf("delegator: build delegate %s: %w", resource, err)
	}
	if err := d.signAndBroadcast(ctx, "DelegateResource", delegateTx); err != nil {
		return domain.DelegationOutcome{}, fmt.Errorf("delegator: delegate %s: %w", resource, err)
	}

	return domain.DelegationOutcome{
		Resource:       resourceKind(resource),
		UnitsRequested: unitsRequested,
		TRXFrozenSun:   trxToFreezeSun,
		TxID:           delegateTx.TxID,
		BroadcastOK:    true,
	}, nil
}

func (d *Delegator) signAndBroadcast(ctx context.Context, op string, tx *tronclient.RawTransaction) error {
	rawData, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return fmt.Errorf("decode raw_data_hex: %w", err)
	}
	signed, err := d.signer.Sign(op, rawData)
	if err != nil {
		return err
	}
	tx.Signature = append(tx.Signature, hexsig.Encode(signed.Signature))
	if signed.PermissionID != 0 {
		for i := range tx.RawData.Contract {
			tx.RawData.Contract[i].PermissionID = signed.PermissionID
		}
	}
	resp, err := d.client.Broadcast(ctx, tx)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	if !resp.Result {
		return fmt.Errorf("broadcast rejected: %s", resp.Message)
	}
	return nil
}

func resourceKind(resource tronclient.Resource) domain.Resource {
	if resource == tronclient.ResourceBandwidth {
		return domain.ResourceBandwidth
	}
	return domain.ResourceEnergy
}
