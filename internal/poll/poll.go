// Package poll centralizes the retry-with-cancellation loop used by both
// the Verifier and the Activator's wait_conf step (spec.md §5, §9 Design
// Notes: "Retry + timeout as inline sleeps: centralize in a reusable
// polling primitive with cancellation").
package poll

import (
	"context"
	"time"
)

// Options configures a poll loop.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Result is what a poll loop returns once it stops, whichever way it stops.
type Result struct {
	Succeeded bool
	Attempts  int
	Cancelled bool
	TimedOut  bool
}

// Until calls check repeatedly, spaced by opts.Interval, until check
// returns true, the parent context is cancelled, or opts.Timeout elapses.
// check receives the attempt's own context so a single slow call cannot
// outlive the overall budget.
func Until(ctx context.Context, opts Options, check func(ctx context.Context) (bool, error)) Result {
	deadline := time.Now().Add(opts.Timeout)

	attempt := func() bool {
		callDeadline := time.Now().Add(opts.Interval * 4)
		if callDeadline.After(deadline) {
			callDeadline = deadline
		}
		callCtx, cancel := context.WithDeadline(ctx, callDeadline)
		defer cancel()
		ok, err := check(callCtx)
		return err == nil && ok
	}

	// The first check runs immediately so an already-satisfied condition
	// short-circuits without waiting a full interval.
	attempts := 1
	if attempt() {
		return Result{Succeeded: true, Attempts: attempts}
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{Cancelled: true, Attempts: attempts}
		case <-ticker.C:
			if time.Now().After(deadline) {
				return Result{TimedOut: true, Attempts: attempts}
			}
			attempts++
			if attempt() {
				return Result{Succeeded: true, Attempts: attempts}
			}
		}
	}
}
