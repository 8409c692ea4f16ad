package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	sweepClaimKey   = "sweep:expirations:claim"
	defaultGateTTL  = time.Minute
	claimTimeLayout = time.RFC3339
)

// SweepGate is a best-effort distributed claim for expiration sweeps. Sweeps
// are triggered on page loads and by the periodic runner, so a burst of
// triggers should run the sweep once; the notice ledger's unique constraint
// remains the actual correctness mechanism when claims race.
type SweepGate struct {
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewSweepGate(client *goredis.Client, ttl time.Duration) (*SweepGate, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultGateTTL
	}

	return &SweepGate{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TryClaim attempts to take the sweep claim. It returns false when another
// invocation claimed it within the TTL window.
func (g *SweepGate) TryClaim(ctx context.Context) (bool, error) {
	if g == nil || g.client == nil {
		return false, fmt.Errorf("sweep gate is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	claimed, err := g.client.SetNX(ctx, sweepClaimKey, g.now().UTC().Format(claimTimeLayout), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim sweep gate: %w", err)
	}
	return claimed, nil
}

// Release drops the claim early so the next trigger does not wait out the
// TTL. Used after a sweep that processed nothing.
func (g *SweepGate) Release(ctx context.Context) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("sweep gate is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := g.client.Del(ctx, sweepClaimKey).Err(); err != nil {
		return fmt.Errorf("failed to release sweep gate: %w", err)
	}
	return nil
}
