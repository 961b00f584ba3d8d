package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Orchestrator fans out tool invocations onto goroutines bounded by a
// weighted semaphore and fans in when all have reached a terminal state.
type Orchestrator struct {
	logger      *slog.Logger
	maxWorkers  int64
	toolTimeout time.Duration
}

// New creates an orchestrator. maxWorkers <= 0 means 4. toolTimeout 0
// disables the per-tool deadline.
func New(logger *slog.Logger, maxWorkers int, toolTimeout time.Duration) *Orchestrator {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &Orchestrator{
		logger:      logger,
		maxWorkers:  int64(maxWorkers),
		toolTimeout: toolTimeout,
	}
}

// Run executes all invocations concurrently and returns once every one has
// reached a terminal state. One tool's failure (error or panic) never
// prevents the others from completing or being recorded. Each tool name
// executes at most once; later duplicates are dropped.
func (o *Orchestrator) Run(ctx context.Context, invocations []Invocation) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Outcomes:  make(map[string]Outcome),
	}

	// Idempotent registration: first occurrence of a name wins
	seen := make(map[string]bool)
	var scheduled []Invocation
	for _, inv := range invocations {
		if seen[inv.Name] {
			o.logger.Debug("Duplicate tool invocation dropped", "tool", inv.Name)
			continue
		}
		seen[inv.Name] = true

		if inv.Exclude {
			run.Outcomes[inv.Name] = Outcome{Tool: inv.Name, State: StateSkipped}
			continue
		}
		run.Outcomes[inv.Name] = Outcome{Tool: inv.Name, State: StatePending}
		scheduled = append(scheduled, inv)
	}

	o.logger.Info("Audit run starting",
		"runId", run.ID, "tools", len(scheduled), "maxWorkers", o.maxWorkers)

	sem := semaphore.NewWeighted(o.maxWorkers)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, inv := range scheduled {
		wg.Add(1)
		go func(inv Invocation) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				// Audit cancelled before this tool ever started
				mu.Lock()
				run.Outcomes[inv.Name] = Outcome{Tool: inv.Name, State: StateCancelled, Error: err.Error()}
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			out := o.runOne(ctx, inv)

			mu.Lock()
			run.Outcomes[inv.Name] = out
			mu.Unlock()
		}(inv)
	}

	// Fan-in barrier
	wg.Wait()

	for name, out := range run.Outcomes {
		if !out.State.IsTerminal() {
			o.logger.Error("Tool left in non-terminal state", "tool", name, "state", string(out.State))
		}
	}

	counts := run.Counts()
	o.logger.Info("Audit run finished",
		"runId", run.ID,
		"succeeded", counts[StateSucceeded],
		"failed", counts[StateFailed],
		"cancelled", counts[StateCancelled],
		"skipped", counts[StateSkipped])

	return run
}

// runOne drives a single invocation to a terminal state. Panics and errors
// are captured in the outcome, never propagated across the fan-in boundary.
func (o *Orchestrator) runOne(ctx context.Context, inv Invocation) (out Outcome) {
	out = Outcome{
		Tool:      inv.Name,
		State:     StateRunning,
		StartedAt: time.Now(),
	}

	defer func() {
		out.DurationMs = time.Since(out.StartedAt).Milliseconds()
		if p := recover(); p != nil {
			out.State = StateFailed
			out.Error = fmt.Sprintf("panic: %v", p)
			o.logger.Error("Tool panicked", "tool", inv.Name, "panic", fmt.Sprintf("%v", p))
		}
	}()

	o.logger.Debug("Tool starting", "tool", inv.Name)

	toolCtx := ctx
	var cancel context.CancelFunc
	if o.toolTimeout > 0 {
		toolCtx, cancel = context.WithTimeout(ctx, o.toolTimeout)
		defer cancel()
	}

	payload, fromCache, err := inv.Execute(toolCtx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			out.State = StateCancelled
			out.Error = err.Error()
			o.logger.Info("Tool cancelled", "tool", inv.Name)
			return out
		}
		out.State = StateFailed
		out.Error = err.Error()
		o.logger.Error("Tool failed", "tool", inv.Name, "error", err.Error())
		return out
	}

	out.State = StateSucceeded
	out.Payload = payload
	out.FromCache = fromCache
	o.logger.Debug("Tool finished",
		"tool", inv.Name, "fromCache", fromCache,
		"durationMs", time.Since(out.StartedAt).Milliseconds())
	return out
}
