package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_RunsTasksUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	var swept atomic.Int32

	r := New(quietLogger(), Task{
		Name:     "denylist",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 2, nil
		},
	}).OnSwept(func(task string, n int) {
		if task == "denylist" {
			swept.Add(int32(n))
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.True(t, r.Running())

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	require.False(t, r.Running())
	require.GreaterOrEqual(t, swept.Load(), int32(6))
}

func TestRunner_FailingTaskDoesNotReport(t *testing.T) {
	reported := false

	r := New(quietLogger()).OnSwept(func(string, int) { reported = true })
	r.step(context.Background(), Task{
		Name: "broken",
		Run:  func(context.Context) (int, error) { return 5, errors.New("boom") },
	})

	require.False(t, reported)
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after failures", func(t *testing.T) {
		n := 0
		err := Retry(ctx, 3, time.Millisecond, 2*time.Millisecond, func(context.Context) error {
			n++
			if n < 2 {
				return errors.New("not yet")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})

	t.Run("returns last error", func(t *testing.T) {
		want := errors.New("still down")
		n := 0
		err := Retry(ctx, 2, time.Millisecond, 2*time.Millisecond, func(context.Context) error {
			n++
			return want
		})
		require.ErrorIs(t, err, want)
		require.Equal(t, 2, n)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := Retry(cctx, 5, time.Second, time.Second, func(context.Context) error {
			return errors.New("down")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestExponentialBackoff_Caps(t *testing.T) {
	require.GreaterOrEqual(t, ExponentialBackoff(0, time.Second, time.Minute), time.Second)
	d := ExponentialBackoff(30, time.Second, 5*time.Second)
	require.GreaterOrEqual(t, d, 5*time.Second)
	require.Less(t, d, 5*time.Second+250*time.Millisecond)
}
