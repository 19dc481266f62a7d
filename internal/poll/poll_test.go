package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUntilSucceedsImmediately(t *testing.T) {
	res := Until(context.Background(), Options{Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond},
		func(ctx context.Context) (bool, error) { return true, nil })
	assert.True(t, res.Succeeded)
	assert.Equal(t, 1, res.Attempts)
}

func TestUntilSucceedsAfterLag(t *testing.T) {
	calls := 0
	res := Until(context.Background(), Options{Interval: 5 * time.Millisecond, Timeout: 200 * time.Millisecond},
		func(ctx context.Context) (bool, error) {
			calls++
			return calls >= 3, nil
		})
	assert.True(t, res.Succeeded)
	assert.GreaterOrEqual(t, res.Attempts, 3)
}

func TestUntilTimesOut(t *testing.T) {
	res := Until(context.Background(), Options{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond},
		func(ctx context.Context) (bool, error) { return false, nil })
	assert.True(t, res.TimedOut)
	assert.False(t, res.Succeeded)
}

func TestUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Until(ctx, Options{Interval: 5 * time.Millisecond, Timeout: 200 * time.Millisecond},
		func(ctx context.Context) (bool, error) {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			default:
				return false, nil
			}
		})
	assert.True(t, res.Cancelled || res.TimedOut)
}
