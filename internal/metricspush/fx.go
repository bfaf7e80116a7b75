package metricspush

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/taxengine/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(Register),
)

// Register pushes the default gatherer when the app stops and, when an
// interval is configured, periodically while it runs. Push failures are
// logged and never fail the lifecycle.
func Register(lc fx.Lifecycle, cfg config.Config, pusher Pusher, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := newWorker(pusher, prometheus.DefaultGatherer, logger.Named("metrics.push"))
	interval := time.Duration(cfg.MetricsPush.IntervalSeconds) * time.Second

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if interval > 0 {
				w.start(interval)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.stop(ctx)
			w.pushOnce(ctx)
			return nil
		},
	})
}

type worker struct {
	pusher   Pusher
	gatherer prometheus.Gatherer
	logger   *zap.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	errorOnce atomic.Bool
}

func newWorker(pusher Pusher, gatherer prometheus.Gatherer, logger *zap.Logger) *worker {
	return &worker{pusher: pusher, gatherer: gatherer, logger: logger}
}

func (w *worker) start(interval time.Duration) {
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go func() {
		defer close(w.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), defaultPushTimeout)
				w.pushOnce(ctx)
				cancel()
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *worker) stop(ctx context.Context) {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	select {
	case <-w.doneCh:
	case <-ctx.Done():
	}
}

// pushOnce logs the first failure of a streak only.
func (w *worker) pushOnce(ctx context.Context) {
	if err := w.pusher.Push(ctx, w.gatherer); err != nil {
		if w.errorOnce.CompareAndSwap(false, true) {
			w.logger.Warn("metrics push failed", zap.Error(err))
		}
		return
	}
	w.errorOnce.Store(false)
}
