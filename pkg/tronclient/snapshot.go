package tronclient

import (
	"context"
	"sync"
)

// Snapshot is the multi-endpoint-reconciled view of one address, computed
// by taking the element-wise maximum across every endpoint group that
// answered (spec.md §4.2: "this masks index lag after freeze/delegate").
type Snapshot struct {
	Activated          bool
	BalanceSun         uint64
	EnergyAvailable    uint64
	BandwidthAvailable uint64
}

// endpointGroup names one of the three parallel read sources spec.md §4.2
// names explicitly: local full, local solidity, remote solidity.
type endpointGroup struct {
	name string
	urls []string
}

func (c *Client) groups() []endpointGroup {
	return []endpointGroup{
		{"full", c.full},
		{"solidity", c.solidity},
		{"remote", c.remote},
	}
}

// ReadSnapshot implements the parallel_max combinator from spec.md §9
// Design Notes: it queries every configured endpoint group concurrently and
// returns the per-field maximum across whichever groups answered. A group
// with no configured URLs or that errors is simply skipped, not treated as
// zero — only successful reads participate in the max.
func (c *Client) ReadSnapshot(ctx context.Context, addr string) (Snapshot, error) {
	groups := c.groups()
	results := make([]*Snapshot, len(groups))
	errs := make([]error, len(groups))

	var wg sync.WaitGroup
	for i, g := range groups {
		if len(g.urls) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, urls []string) {
			defer wg.Done()
			scoped := &Client{full: urls, http: c.http, retries: c.retries}
			acc, err := scoped.GetAccount(ctx, addr)
			if err != nil {
				errs[i] = err
				return
			}
			res, err := scoped.GetAccountResource(ctx, addr)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = &Snapshot{
				Activated:          acc.Exists(),
				BalanceSun:         acc.BalanceSun,
				EnergyAvailable:    res.EnergyAvailable(),
				BandwidthAvailable: res.BandwidthAvailable(),
			}
		}(i, g.urls)
	}
	wg.Wait()

	var out Snapshot
	var sawAny bool
	var firstErr error
	for i, r := range results {
		if r == nil {
			if errs[i] != nil && firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		sawAny = true
		out.Activated = out.Activated || r.Activated
		if r.BalanceSun > out.BalanceSun {
			out.BalanceSun = r.BalanceSun
		}
		if r.EnergyAvailable > out.EnergyAvailable {
			out.EnergyAvailable = r.EnergyAvailable
		}
		if r.BandwidthAvailable > out.BandwidthAvailable {
			out.BandwidthAvailable = r.BandwidthAvailable
		}
	}
	if !sawAny {
		return Snapshot{}, firstErr
	}
	return out, nil
}
