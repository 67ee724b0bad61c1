package overviewrunner

import (
    "context"
    "time"

    "go.uber.org/zap"
)

// Refresher rebuilds the overview snapshot.
type Refresher interface {
    Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Run rebuilds the snapshot once immediately and then every interval until
// ctx is cancelled. A non-positive interval disables the loop. Failures are
// logged and the next tick tries again.
func Run(ctx context.Context, r Refresher, interval time.Duration, log *zap.Logger) {
    if interval <= 0 {
        return
    }
    refresh := func() {
        start := time.Now()
        if err := r.Refresh(ctx); err != nil {
            if ctx.Err() != nil {
                return
            }
            log.Warn("overview refresh failed", zap.Error(err))
            return
        }
        log.Debug("overview refreshed", zap.Duration("took", time.Since(start)))
    }

    refresh()
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            refresh()
        }
    }
}
