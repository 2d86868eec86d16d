package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunEvery invokes fn on every tick of interval until ctx is cancelled.
// When immediate is set fn also runs once before the first tick. The call
// returns right away; the loop runs on its own goroutine.
func RunEvery(ctx context.Context, name string, interval time.Duration, immediate bool, logger *zap.Logger, fn func(context.Context)) {
	if interval <= 0 || fn == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logger.Info("periodic task started", zap.String("task", name), zap.Duration("interval", interval))
		if immediate {
			runGuarded(ctx, name, logger, fn)
		}
		for {
			select {
			case <-ctx.Done():
				logger.Info("periodic task stopped", zap.String("task", name))
				return
			case <-ticker.C:
				runGuarded(ctx, name, logger, fn)
			}
		}
	}()
}

func runGuarded(ctx context.Context, name string, logger *zap.Logger, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("periodic task panicked", zap.String("task", name), zap.Any("panic", r))
		}
	}()
	fn(ctx)
}
