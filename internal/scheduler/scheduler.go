// Package scheduler runs the periodic expiration sweep. The sweep is a
// singleton job: a Redis lease keeps instances from sweeping concurrently.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/casalist/casalist/internal/clock"
	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	"github.com/casalist/casalist/internal/lock"
	obsmetrics "github.com/casalist/casalist/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	LifecycleSvc lifecycledomain.Service

	Locker *lock.Locker `optional:"true"`
	Config Config       `optional:"true"`
}

type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	lifecycleSvc lifecycledomain.Service
	locker       *lock.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.LifecycleSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		lifecycleSvc: p.LifecycleSvc,
		locker:       p.Locker,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep invocation: acquire the lease, expire
// lapsed listings, release. A held lease means another instance is
// sweeping and this invocation is skipped, not queued.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	sweepMetrics := obsmetrics.Sweep()

	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			sweepMetrics.IncSkipped()
			s.log.Debug("sweep lease held elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), s.cfg.LockKey, token); err != nil {
				s.log.Warn("sweep lease release failed", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	sweepMetrics.IncRun()

	expired, err := s.lifecycleSvc.SweepExpirations(ctx, s.clock.Now())
	sweepMetrics.ObserveDuration(time.Since(start))
	sweepMetrics.AddExpired(expired)
	if expired > 0 {
		s.log.Info("sweep expired listings", zap.Int("count", expired))
	}
	if err == nil {
		return nil
	}

	sweepMetrics.IncFailure()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("sweep timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Int("expired_before_timeout", expired),
		)
		return nil
	}
	return err
}
