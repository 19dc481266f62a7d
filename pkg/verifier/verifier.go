// Package verifier reads baseline and post-delegation ResourceSnapshots and
// decides USDT-readiness, per spec.md §4.8.
package verifier

import (
	"context"
	"time"

	"github.com/tron-gas-station/gasstation/internal/poll"
	"github.com/tron-gas-station/gasstation/pkg/domain"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

// Verifier polls a Client's multi-endpoint snapshot until a resource
// increase is observed or the window elapses.
type Verifier struct {
	client *tronclient.Client
}

// New builds a Verifier.
func New(client *tronclient.Client) *Verifier {
	return &Verifier{client: client}
}

// Baseline reads the pre-delegation ResourceSnapshot (spec.md §4.8 "before
// delegations").
func (v *Verifier) Baseline(ctx context.Context, addr string) (domain.ResourceSnapshot, error) {
	snap, err := v.client.ReadSnapshot(ctx, addr)
	if err != nil {
		return domain.ResourceSnapshot{}, err
	}
	return toModel(addr, snap), nil
}

// WaitForIncrease polls every 500ms for up to 10 attempts (5s), accepting as
// soon as the named resource's available units exceed baseline. It always
// returns the last observed snapshot, win or lose, per spec.md §4.8 "on loop
// end, return the last observed snapshot".
func (v *Verifier) WaitForIncrease(ctx context.Context, addr string, resource domain.Resource, baseline domain.ResourceSnapshot) (domain.ResourceSnapshot, bool) {
	var last domain.ResourceSnapshot
	before := fieldOf(resource, baseline)

	result := poll.Until(ctx, poll.Options{Interval: 500 * time.Millisecond, Timeout: 5 * time.Second},
		func(ctx context.Context) (bool, error) {
			snap, err := v.client.ReadSnapshot(ctx, addr)
			if err != nil {
				return false, err
			}
			last = toModel(addr, snap)
			return fieldOf(resource, last) > before, nil
		})
	return last, result.Succeeded
}

func fieldOf(resource domain.Resource, s domain.ResourceSnapshot) uint64 {
	if resource == domain.ResourceBandwidth {
		return s.BandwidthAvailable
	}
	return s.EnergyAvailable
}

func toModel(addr string, s tronclient.Snapshot) domain.ResourceSnapshot {
	return domain.ResourceSnapshot{
		Address:            addr,
		Activated:          s.Activated,
		BalanceSun:         s.BalanceSun,
		EnergyAvailable:    s.EnergyAvailable,
		BandwidthAvailable: s.BandwidthAvailable,
	}
}
