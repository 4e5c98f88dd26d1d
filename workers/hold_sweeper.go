package workers

import (
	"context"
	"time"

	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/booking_models"
)

// HoldSweeper periodically cancels pending holds whose payment window has
// lapsed. Expired holds already stop blocking their dates; sweeping only
// makes the ledger reflect it.
type HoldSweeper struct {
	Ledger   booking_models.Ledger
	Interval time.Duration
	Now      func() time.Time
}

func NewHoldSweeper(ledger booking_models.Ledger, interval time.Duration) *HoldSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HoldSweeper{Ledger: ledger, Interval: interval, Now: time.Now}
}

// Sweep runs one pass and returns the number of holds released.
func (s *HoldSweeper) Sweep(ctx context.Context) (int, error) {
	n, err := s.Ledger.ExpireHolds(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.InfoLogger.Infof("Hold sweeper released %d expired hold(s)", n)
	}
	return n, nil
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *HoldSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	logger.InfoLogger.Infof("Hold sweeper started (interval %s)", s.Interval)
	if _, err := s.Sweep(ctx); err != nil {
		logger.ErrorLogger.Errorf("Hold sweep failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.InfoLogger.Info("Hold sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.ErrorLogger.Errorf("Hold sweep failed: %v", err)
			}
		}
	}
}
