// Package gasstation prepares arbitrary TRON addresses to receive a
// zero-cost USDT (TRC20) transfer by estimating, activating, delegating and
// verifying the ENERGY and BANDWIDTH the target needs.
package gasstation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/tron-gas-station/gasstation/internal/tronaddr"
	"github.com/tron-gas-station/gasstation/pkg/activator"
	"github.com/tron-gas-station/gasstation/pkg/delegator"
	"github.com/tron-gas-station/gasstation/pkg/oracle"
	"github.com/tron-gas-station/gasstation/pkg/signer"
	"github.com/tron-gas-station/gasstation/pkg/simulator"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
	"github.com/tron-gas-station/gasstation/pkg/verifier"
)

// newHolderPenalty is the multiplier spec.md §4.1 step 2 applies to the
// simulated energy cost when the simulation had to run from the pool wallet
// rather than the (not-yet-activated) target itself.
const newHolderPenalty = 1.2

// StationConfig wires a Station's dependencies and policy constants.
type StationConfig struct {
	PoolWallet             string
	Profile                NetworkProfile
	ActivationMode         ActivationMode
	CreateAccountSupported bool
	Delegation             delegator.Config
	OracleFallbacks        oracle.Fallbacks
	PreparationTimeout     time.Duration // default 60s, spec.md §5
}

// Station is the root orchestrator: prepare_for_usdt, dry_run, health,
// status (spec.md §4.1, §6).
type Station struct {
	client    *tronclient.Client
	signer    *signer.Signer
	activator *activator.Activator
	delegator *delegator.Delegator
	verifier  *verifier.Verifier
	cfg       StationConfig

	poolLock sync.Mutex // serializes build+sign+broadcast from the pool wallet (spec.md §5)

	targetLocksMu sync.Mutex
	targetLocks   map[string]*sync.Mutex // cooperative single-preparation-per-target (spec.md §5)
}

// New builds a Station from an already-constructed RPC client and signer.
func New(client *tronclient.Client, s *signer.Signer, cfg StationConfig) (*Station, error) {
	if cfg.PoolWallet == "" {
		return nil, errors.New("gasstation: pool wallet address required")
	}
	if err := tronaddr.Validate(cfg.PoolWallet); err != nil {
		return nil, fmt.Errorf("gasstation: pool wallet: %w", err)
	}
	if cfg.Profile.USDTContract == "" {
		return nil, errors.New("gasstation: network profile missing USDT contract address")
	}
	if cfg.PreparationTimeout <= 0 {
		cfg.PreparationTimeout = 60 * time.Second
	}

	a, err := activator.New(client, s, activator.Config{
		Mode:                   activator.Mode(cfg.ActivationMode),
		ActivationCostSun:      uint64(cfg.Profile.ActivationCostTRX * 1_000_000),
		PoolWallet:             cfg.PoolWallet,
		CreateAccountSupported: cfg.CreateAccountSupported,
	})
	if err != nil {
		return nil, fmt.Errorf("gasstation: %w", err)
	}

	return &Station{
		client:      client,
		signer:      s,
		activator:   a,
		delegator:   delegator.New(client, s, cfg.Delegation),
		verifier:    verifier.New(client),
		cfg:         cfg,
		targetLocks: make(map[string]*sync.Mutex),
	}, nil
}

func (st *Station) lockFor(target string) *sync.Mutex {
	st.targetLocksMu.Lock()
	defer st.targetLocksMu.Unlock()
	m, ok := st.targetLocks[target]
	if !ok {
		m = &sync.Mutex{}
		st.targetLocks[target] = m
	}
	return m
}

// PrepareForUSDT runs spec.md §4.1's seven-step pipeline. It never panics;
// every fault becomes a structured ErrorEntry in the returned result. The
// only error return is for a malformed target address, a caller contract
// violation rather than an operational fault.
func (st *Station) PrepareForUSDT(ctx context.Context, target string) (*PreparationResult, error) {
	if err := tronaddr.Validate(target); err != nil {
		return nil, fmt.Errorf("gasstation: invalid target address: %w", err)
	}

	lock := st.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	result := &PreparationResult{Success: true}

	ctx, cancel := context.WithTimeout(ctx, st.cfg.PreparationTimeout)
	defer cancel()

	defer func() {
		result.ExecutionTimeMS = time.Since(start).Milliseconds()
		// An overall-timeout or explicit cancellation wins regardless of
		// which step was in flight when it hit (spec.md §5).
		switch ctx.Err() {
		case context.DeadlineExceeded:
			result.Strategy = "timeout"
		case context.Canceled:
			result.Strategy = "cancelled"
		}
	}()

	// Step 1: probe.
	baseline, err := st.verifier.Baseline(ctx, target)
	if err != nil {
		result.Strategy = "probe_failed"
		result.addError("network", "probe", err.Error(), true)
		return result, nil
	}
	if baseline.USDTReady() {
		result.Strategy = "already_ready"
		result.Verification = VerificationSummary{
			EnergyOK: true, BandwidthOK: true, Activated: true, USDTReady: true,
		}
		return result, nil
	}

	// Step 2: simulate.
	proxy := target
	if !baseline.Activated {
		proxy = st.cfg.PoolWallet
	}
	holder := simulator.HolderNew
	if baseline.Activated {
		holder = simulator.HolderExisting
	}
	sim, err := simulator.Simulate(ctx, st.client, proxy, target, st.cfg.Profile.USDTContract, big.NewInt(1), holder)
	if err != nil {
		result.addWarning(fmt.Sprintf("simulation_fallback: %v", err))
	}
	simResult := SimulationResult{
		EnergyUsed:                    sim.EnergyUsed,
		BandwidthUsed:                 sim.BandwidthUsed,
		WouldSucceed:                  sim.WouldSucceed,
		RecipientIsExistingUSDTHolder: sim.RecipientIsExistingUSDTHolder,
	}
	if proxy != target {
		simResult.EnergyUsed = uint64(float64(simResult.EnergyUsed) * newHolderPenalty)
		simResult.RecipientIsExistingUSDTHolder = classifyHolder(simResult.EnergyUsed)
	}

	// Step 3: plan.
	params, err := st.client.GetChainParameters(ctx)
	if err != nil {
		result.addWarning("oracle_fallback: " + err.Error())
	}
	yields := oracle.Compute(params, st.cfg.OracleFallbacks)
	plan := st.delegator.Plan(simResult.EnergyUsed, simResult.BandwidthUsed, yields.EnergyPerTRX, yields.BandwidthPerTRX)
	result.RequiredEnergy = plan.NeedEnergyUnits
	result.RequiredBandwidth = plan.NeedBandwidthUnits

	// Step 4: activate if needed.
	if !baseline.Activated {
		st.poolLock.Lock()
		_, err := st.activator.Broadcast(ctx, target)
		st.poolLock.Unlock()
		if err != nil {
			var denied *signer.ErrPermissionDenied
			if errors.As(err, &denied) {
				result.Strategy = "activation_failed"
				result.addError("permission", "activate", err.Error(), false)
				return result, nil
			}
			result.Strategy = "activation_failed"
			result.addError("broadcast", "activate", err.Error(), false)
			return result, nil
		}
		wait := st.activator.WaitConf(ctx, target)
		if wait.Warning != "" {
			result.addWarning(wait.Warning)
		}
	}

	// Step 5: delegate (ENERGY, then BANDWIDTH; independent failures).
	st.delegateResource(ctx, result, target, tronclient.ResourceEnergy, plan.NeedEnergyUnits, plan.EnergyTRXToFreeze, yields.EnergyPerTRX, baseline)
	st.delegateResource(ctx, result, target, tronclient.ResourceBandwidth, plan.NeedBandwidthUnits, plan.BandwidthTRXToFreeze, yields.BandwidthPerTRX, baseline)

	// Step 6: verify.
	final, err := st.verifier.Baseline(ctx, target)
	if err != nil {
		result.addError("network", "verify", err.Error(), true)
	} else {
		energyOK := float64(final.EnergyAvailable) >= 0.9*float64(plan.NeedEnergyUnits)
		bandwidthOK := float64(final.BandwidthAvailable) >= 0.9*float64(plan.NeedBandwidthUnits)
		result.Verification = VerificationSummary{
			EnergyOK:    energyOK,
			BandwidthOK: bandwidthOK,
			Activated:   final.Activated,
			USDTReady:   final.USDTReady(),
		}
		if !((energyOK && bandwidthOK && final.Activated) || final.USDTReady()) {
			result.addError("verification_timeout", "verify", "post-delegation thresholds not met", true)
		}
	}

	// Step 7: report.
	if result.Strategy == "" {
		result.Strategy = "complete_preparation"
	}
	return result, nil
}

// delegateResource runs spec.md §4.7 for one resource and folds the outcome
// into result, never aborting the other resource's delegation.
func (st *Station) delegateResource(ctx context.Context, result *PreparationResult, target string, resource tronclient.Resource, unitsNeeded, trxToFreezeSun uint64, unitsPerTRX float64, baseline ResourceSnapshot) {
	st.poolLock.Lock()
	out, err := st.delegator.Delegate(ctx, st.cfg.PoolWallet, target, resource, unitsNeeded, trxToFreezeSun)
	st.poolLock.Unlock()

	if err != nil {
		var denied *signer.ErrPermissionDenied
		kind := "broadcast"
		if errors.As(err, &denied) {
			kind = "permission"
		}
		result.addError(kind, "delegate_"+string(resourceKind(resource)), err.Error(), kind == "broadcast")
		result.Delegations = append(result.Delegations, DelegationOutcome{
			Resource:       resourceKind(resource),
			UnitsRequested: unitsNeeded,
			TRXFrozenSun:   trxToFreezeSun,
		})
		return
	}

	final, ok := st.verifier.WaitForIncrease(ctx, target, out.Resource, baseline)
	if ok {
		out.ObservedIncrease = fieldOf(out.Resource, final) - fieldOf(out.Resource, baseline)
	} else {
		// Step 5's lag-tolerant acceptance: the freeze math guarantees
		// coverage whenever at least 1 TRX was frozen and the simulated
		// requirement fits inside what one TRX of this resource buys.
		coveredByOneTRX := unitsPerTRX > 0 && float64(unitsNeeded) <= unitsPerTRX
		if trxToFreezeSun >= 1_000_000 && coveredByOneTRX {
			result.addWarning(fmt.Sprintf("verification_timeout:%s", resourceKind(resource)))
		} else {
			result.addError("verification_timeout", "delegate_"+string(resourceKind(resource)), "resource increase not observed within wait window", true)
		}
	}
	result.Delegations = append(result.Delegations, out)
}

func resourceKind(resource tronclient.Resource) Resource {
	if resource == tronclient.ResourceBandwidth {
		return ResourceBandwidth
	}
	return ResourceEnergy
}

func fieldOf(resource Resource, s ResourceSnapshot) uint64 {
	if resource == ResourceBandwidth {
		return s.BandwidthAvailable
	}
	return s.EnergyAvailable
}

// DryRun returns the plan and estimated cost without broadcasting anything
// (spec.md §5, §6, Testable Property 8).
func (st *Station) DryRun(ctx context.Context, target string) (*DryRunResult, error) {
	if err := tronaddr.Validate(target); err != nil {
		return nil, fmt.Errorf("gasstation: invalid target address: %w", err)
	}

	baseline, err := st.verifier.Baseline(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("gasstation: probe: %w", err)
	}

	out := &DryRunResult{Feasible: true}
	if baseline.USDTReady() {
		return out, nil
	}

	proxy := target
	if !baseline.Activated {
		proxy = st.cfg.PoolWallet
	}
	holder := simulator.HolderNew
	if baseline.Activated {
		holder = simulator.HolderExisting
	}
	sim, err := simulator.Simulate(ctx, st.client, proxy, target, st.cfg.Profile.USDTContract, big.NewInt(1), holder)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("simulation_fallback: %v", err))
	}
	energyUsed := sim.EnergyUsed
	if proxy != target {
		energyUsed = uint64(float64(energyUsed) * newHolderPenalty)
	}

	params, err := st.client.GetChainParameters(ctx)
	if err != nil {
		out.Warnings = append(out.Warnings, "oracle_fallback: "+err.Error())
	}
	yields := oracle.Compute(params, st.cfg.OracleFallbacks)
	out.Plan = st.delegator.Plan(energyUsed, sim.BandwidthUsed, yields.EnergyPerTRX, yields.BandwidthPerTRX)

	costSun := out.Plan.EnergyTRXToFreeze + out.Plan.BandwidthTRXToFreeze
	if !baseline.Activated {
		costSun += uint64(st.cfg.Profile.ActivationCostTRX * 1_000_000)
	}
	out.EstimatedCostTRX = float64(costSun) / 1_000_000

	pool, err := st.client.GetAccount(ctx, st.cfg.PoolWallet)
	if err == nil && pool.BalanceSun < costSun {
		out.Feasible = false
		out.Warnings = append(out.Warnings, "insufficient_funds")
	}
	return out, nil
}

// Health pings the full node and reports liveness (spec.md §6).
func (st *Station) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	block, err := st.client.GetNowBlock(ctx)
	status := HealthStatus{
		NodeType:  "full",
		Connected: err == nil,
		CheckedAt: time.Now(),
	}
	status.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		status.Warnings = append(status.Warnings, err.Error())
		return status
	}
	status.LatestBlock = block
	return status
}

// Status reports the pool wallet's current resources and signer policy
// (spec.md §6).
func (st *Station) Status(ctx context.Context) (*PoolStatus, error) {
	acc, err := st.client.GetAccount(ctx, st.cfg.PoolWallet)
	if err != nil {
		return nil, fmt.Errorf("gasstation: status: %w", err)
	}
	res, err := st.client.GetAccountResource(ctx, st.cfg.PoolWallet)
	if err != nil {
		return nil, fmt.Errorf("gasstation: status: %w", err)
	}
	return &PoolStatus{
		PoolWalletAddress:  st.cfg.PoolWallet,
		BalanceTRX:         float64(acc.BalanceSun) / 1_000_000,
		EnergyAvailable:    res.EnergyAvailable(),
		BandwidthAvailable: res.BandwidthAvailable(),
		PermissionID:       st.signer.PermissionID(),
		ControlOpsAllowed:  st.signer.AllowedOps(),
		FallbackToOwner:    st.signer.FallbackToOwner(),
	}, nil
}
