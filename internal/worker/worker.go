package worker

import (
	"context"
	"time"

	"github.com/rookgm/grocerycart/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Minute
	batchSize       = 100
)

type OrderService interface {
	ExpirePending(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

// PendingReaper is worker cancels online orders that were never paid
type PendingReaper struct {
	svc      OrderService
	ttl      time.Duration
	interval time.Duration
}

// NewPendingReaper create new pending order reaper
func NewPendingReaper(svc OrderService, ttl time.Duration) *PendingReaper {
	return &PendingReaper{svc: svc, ttl: ttl, interval: defaultInterval}
}

// Run expires stale orders on every tick until ctx is done
func (pr *PendingReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(pr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("pending order reaper is done")
			return
		case <-ticker.C:
			pr.sweep(ctx)
		}
	}
}

func (pr *PendingReaper) sweep(ctx context.Context) {
	for {
		n, err := pr.svc.ExpirePending(ctx, pr.ttl, batchSize)
		if err != nil {
			logger.Log.Error("error expire pending orders", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Info("pending orders expired", zap.Int("count", n))
		}
		if n < batchSize {
			return
		}
	}
}
