package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a periodic housekeeping step. Run reports how many items it removed.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Runner drives a set of tasks on their own tickers until the context ends.
type Runner struct {
	tasks []Task
	log   *slog.Logger

	onSwept func(task string, n int)

	mu      sync.RWMutex
	running bool
}

func New(log *slog.Logger, tasks ...Task) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{tasks: tasks, log: log}
}

// OnSwept registers a callback fired after each successful run that removed
// at least one item (metrics).
func (r *Runner) OnSwept(fn func(task string, n int)) *Runner {
	r.onSwept = fn
	return r
}

func (r *Runner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}

// Run blocks until ctx is cancelled and every task loop has returned.
func (r *Runner) Run(ctx context.Context) {
	r.setRunning(true)
	defer r.setRunning(false)

	var wg sync.WaitGroup

	for _, t := range r.tasks {
		if t.Run == nil || t.Interval <= 0 {
			continue
		}

		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			r.loop(ctx, t)
		}(t)
	}

	wg.Wait()
	r.log.Info("maintenance stopped")
}

func (r *Runner) loop(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			r.step(ctx, t)
		}
	}
}

func (r *Runner) step(ctx context.Context, t Task) {
	n, err := t.Run(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "maintenance_task_failed", "task", t.Name, "err", err)
		return
	}

	if n > 0 {
		r.log.DebugContext(ctx, "maintenance_task_swept", "task", t.Name, "removed", n)
		if r.onSwept != nil {
			r.onSwept(t.Name, n)
		}
	}
}
