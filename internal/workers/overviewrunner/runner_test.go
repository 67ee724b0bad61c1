package overviewrunner

import (
    "context"
    "errors"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "go.uber.org/zap"
)

func TestRunRefreshesUntilCancelled(t *testing.T) {
    var calls atomic.Int32
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        defer close(done)
        Run(ctx, RefresherFunc(func(context.Context) error {
            if calls.Add(1) == 2 {
                return errors.New("store down")
            }
            return nil
        }), 5*time.Millisecond, zap.NewNop())
    }()

    assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
    cancel()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("runner did not stop after cancel")
    }
}

func TestRunDisabled(t *testing.T) {
    var calls atomic.Int32
    Run(context.Background(), RefresherFunc(func(context.Context) error {
        calls.Add(1)
        return nil
    }), 0, zap.NewNop())
    assert.Zero(t, calls.Load())
}
