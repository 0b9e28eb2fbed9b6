package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/ratelimit"
	"github.com/spec-kit/grievance-service/internal/service"
)

// Runner drives the periodic background jobs: the staleness escalation sweep
// and rate governor bucket eviction.
type Runner struct {
	escalations *service.EscalationService
	governor    *ratelimit.Governor
	logger      *zap.Logger
	cfg         config.Config
	wg          sync.WaitGroup
}

// NewRunner constructs the background runner.
func NewRunner(escalations *service.EscalationService, governor *ratelimit.Governor, logger *zap.Logger, cfg config.Config) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		escalations: escalations,
		governor:    governor,
		logger:      logger,
		cfg:         cfg,
	}
}

// Start launches the background loops. They stop when ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.sweepLoop(ctx)
	go r.evictLoop(ctx)
}

// Wait blocks until all loops have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) sweepLoop(ctx context.Context) {
	defer r.wg.Done()

	interval := r.cfg.Escalation.SweepInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("escalation sweep loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("escalation sweep loop stopped")
			return
		case <-ticker.C:
			if _, err := r.escalations.RunSweep(ctx); err != nil {
				r.logger.Error("escalation sweep failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) evictLoop(ctx context.Context) {
	defer r.wg.Done()

	interval := r.cfg.RateLimit.EvictionInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("governor eviction loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("governor eviction loop stopped")
			return
		case <-ticker.C:
			evicted := r.governor.Evict(time.Now())
			if evicted > 0 {
				r.logger.Debug("rate limit buckets evicted", zap.Int("count", evicted))
			}
		}
	}
}
