package engine

import (
	"sync"
	"time"

	"github.com/arung-agamani/denpa-radio/internal/model"
)

// State is EngineState: the externally-observable snapshot of what the
// engine is doing right now. The engine's owning goroutine is the only
// writer; every other goroutine reads through Engine.GetCurrent/GetUpcoming.
type State struct {
	Current       *model.Track
	Previous      *model.Track
	Index         int
	Playing       bool
	Transitioning bool
	StartedAt     time.Time
}

// stateBox guards reads of State from goroutines other than the engine
// loop (HTTP status handlers, tests). The loop is the only writer, but it
// also goes through set and get, so every access takes the lock. The state
// lives on each Engine rather than in a package-level global.
type stateBox struct {
	mu    sync.RWMutex
	state State
}

func (b *stateBox) set(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *stateBox) get() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *stateBox) elapsed() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state.StartedAt.IsZero() {
		return 0
	}
	return time.Since(b.state.StartedAt)
}
