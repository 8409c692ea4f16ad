package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = time.Hour

// ExpirationSweeper runs one expiration sweep as of a date.
type ExpirationSweeper interface {
	SweepExpirations(ctx context.Context, asOf time.Time) (SweepSummary, error)
}

// SweepGate is a best-effort claim shared by every sweep trigger. A holder
// keeps the claim for a short TTL so a burst of triggers runs one sweep; a
// sweep that processed nothing releases the claim early instead of making
// the next trigger wait out the TTL.
type SweepGate interface {
	TryClaim(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// SweepRunner periodically triggers expiration sweeps. The on-demand HTTP
// entry point shares the gate, so either trigger short-circuits when the
// other recently ran.
type SweepRunner struct {
	sweeper  ExpirationSweeper
	gate     SweepGate
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewSweepRunner(sweeper ExpirationSweeper, gate SweepGate, interval time.Duration, logger *zap.Logger) (*SweepRunner, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("expiration sweeper is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SweepRunner{
		sweeper:  sweeper,
		gate:     gate,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (r *SweepRunner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial sweep so an already-due expiration does not wait for
	// the first ticker edge.
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *SweepRunner) runOnce(ctx context.Context) {
	holdingClaim := false
	if r.gate != nil {
		claimed, err := r.gate.TryClaim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// The gate is best effort; a gate failure must not stop
			// expirations from being processed.
			r.logger.Warn("sweep gate unavailable, sweeping anyway", zap.Error(err))
		} else if !claimed {
			return
		} else {
			holdingClaim = true
		}
	}

	summary, err := r.sweeper.SweepExpirations(ctx, r.now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("periodic expiration sweep failed", zap.Error(err))
		return
	}

	if summary.RemindersSent == 0 && summary.ExpirationsProcessed == 0 {
		// Nothing was due; drop the claim so an on-demand trigger does
		// not wait out the TTL.
		if holdingClaim {
			if err := r.gate.Release(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("failed to release sweep gate", zap.Error(err))
			}
		}
		return
	}

	r.logger.Info("periodic expiration sweep completed",
		zap.Int("remindersSent", summary.RemindersSent),
		zap.Int("expirationsProcessed", summary.ExpirationsProcessed),
	)
}
