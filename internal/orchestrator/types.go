// Package orchestrator runs independent tool invocations concurrently with
// per-tool timing, failure isolation, and best-effort cancellation.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"
)

// State is the lifecycle state of one tool invocation.
// Transitions: Pending -> Running -> {Succeeded, Failed, Skipped, Cancelled}.
// Terminal states never transition back.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkipped, StateCancelled:
		return true
	}
	return false
}

// ExecuteFunc performs one tool invocation. Implementations wrap the cache
// lookup: on a hit they return the cached payload with fromCache=true; on a
// miss they run the analyzer and write the fresh result back to the cache
// before returning, so the cache write happens before the outcome is
// reported.
type ExecuteFunc func(ctx context.Context) (payload json.RawMessage, fromCache bool, err error)

// Invocation is one named unit of work. Exclude marks the tool as
// explicitly skipped by the caller; it is recorded but never executed.
type Invocation struct {
	Name    string
	Exclude bool
	Execute ExecuteFunc
}

// Outcome is the terminal record of one tool invocation.
type Outcome struct {
	Tool       string          `json:"tool"`
	State      State           `json:"state"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	FromCache  bool            `json:"fromCache,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"startedAt,omitempty"`
	DurationMs int64           `json:"durationMs"`
}

// Run is the metadata for one orchestrator invocation. It lives only for
// the duration of the audit and is not persisted.
type Run struct {
	ID        string             `json:"id"`
	StartedAt time.Time          `json:"startedAt"`
	Outcomes  map[string]Outcome `json:"outcomes"`
}

// Counts tallies outcomes by state.
func (r *Run) Counts() map[State]int {
	counts := make(map[State]int)
	for _, out := range r.Outcomes {
		counts[out.State]++
	}
	return counts
}
