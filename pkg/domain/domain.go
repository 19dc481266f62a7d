// Package domain holds the result/record types shared between the root
// orchestrator and the leaf packages that produce them (pkg/delegator,
// pkg/verifier). Keeping them here, rather than in the root gasstation
// package, lets those leaf packages construct orchestrator-facing values
// without importing the package that imports them (spec.md §3's data
// model; root package.gasstation re-exports these via type aliases so
// external callers still see gasstation.ResourceSnapshot etc).
package domain

// Resource identifies one of the two TRON resources the station delegates.
type Resource string

const (
	ResourceEnergy    Resource = "ENERGY"
	ResourceBandwidth Resource = "BANDWIDTH"
)

// ResourceSnapshot is a momentary, derived view of a target address. It is
// never stored; it is recomputed on every read.
type ResourceSnapshot struct {
	Address            string
	Activated          bool
	BalanceSun         uint64
	EnergyAvailable    uint64
	BandwidthAvailable uint64
}

// USDTReady reports whether the snapshot already satisfies spec.md §4.8's
// USDT-ready thresholds.
func (s ResourceSnapshot) USDTReady() bool {
	return s.Activated && s.EnergyAvailable >= 15_000 && s.BandwidthAvailable >= 300
}

// DelegationPlan is the ephemeral, per-call output of the Delegator's
// sizing math (spec.md §4.7).
type DelegationPlan struct {
	NeedEnergyUnits      uint64
	NeedBandwidthUnits   uint64
	EnergyTRXToFreeze    uint64 // sun
	BandwidthTRXToFreeze uint64 // sun
}

// DelegationOutcome is the per-resource result of one freeze+delegate
// broadcast (spec.md §3).
type DelegationOutcome struct {
	Resource         Resource
	UnitsRequested   uint64
	TRXFrozenSun     uint64
	TxID             string
	BroadcastOK      bool
	ObservedIncrease uint64
}
