package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestSweepGateClaimOncePerWindow(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedisClient(t)

	gate, err := NewSweepGate(rdb, time.Minute)
	if err != nil {
		t.Fatalf("NewSweepGate() error = %v", err)
	}

	claimed, err := gate.TryClaim(context.Background())
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	claimed, err = gate.TryClaim(context.Background())
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if claimed {
		t.Fatal("second claim inside the TTL window should fail")
	}
}

func TestSweepGateClaimAfterTTL(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedisClient(t)

	gate, err := NewSweepGate(rdb, time.Minute)
	if err != nil {
		t.Fatalf("NewSweepGate() error = %v", err)
	}

	if _, err := gate.TryClaim(context.Background()); err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}

	mr.FastForward(time.Minute + time.Second)

	claimed, err := gate.TryClaim(context.Background())
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if !claimed {
		t.Fatal("claim should succeed again after the TTL expires")
	}
}

func TestSweepGateRelease(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedisClient(t)

	gate, err := NewSweepGate(rdb, time.Minute)
	if err != nil {
		t.Fatalf("NewSweepGate() error = %v", err)
	}

	if _, err := gate.TryClaim(context.Background()); err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if err := gate.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	claimed, err := gate.TryClaim(context.Background())
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if !claimed {
		t.Fatal("claim should succeed after an explicit release")
	}
}

func TestNewSweepGateRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewSweepGate(nil, time.Minute); err == nil {
		t.Fatal("expected error when redis client is nil")
	}
}

func newTestRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, rdb
}
