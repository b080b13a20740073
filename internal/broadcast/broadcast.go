// Package broadcast implements the fan-out of audio chunks to HTTP
// listeners: a bounded per-listener buffer with non-blocking writes, so a
// slow listener degrades only itself.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultBufferChunks bounds each listener's buffered-chunk channel. Chunks
// are pumped in 4 KiB units (see internal/engine), so 256 slots is roughly a
// 1 MiB ring.
const DefaultBufferChunks = 256

// Session is a single listener's view onto the broadcast: an ID and a
// channel of chunks. Broadcaster is the exclusive owner; callers only ever
// read from Chunks and eventually call Broadcaster.RemoveListener.
type Session struct {
	ID        uuid.UUID
	Chunks    chan []byte
	connected bool
}

// Broadcaster maintains the set of live listener sessions and fans out
// chunks to each of them without letting any one listener (or the absence
// of listeners) slow the engine.
type Broadcaster struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{sessions: make(map[uuid.UUID]*Session)}
}

// AddListener allocates a new bounded session and registers it.
func (b *Broadcaster) AddListener() *Session {
	s := &Session{
		ID:        uuid.New(),
		Chunks:    make(chan []byte, DefaultBufferChunks),
		connected: true,
	}

	b.mu.Lock()
	b.sessions[s.ID] = s
	b.mu.Unlock()

	slog.Debug("broadcast: listener added", "id", s.ID, "total", b.ActiveListeners())
	return s
}

// RemoveListener unregisters and closes the session's channel.
func (b *Broadcaster) RemoveListener(id uuid.UUID) {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		delete(b.sessions, id)
	}
	b.mu.Unlock()

	if ok {
		s.connected = false
		close(s.Chunks)
		slog.Debug("broadcast: listener removed", "id", id, "total", b.ActiveListeners())
	}
}

// Write fans chunk out to every session. Each send is non-blocking: if a
// session's buffer is full, the oldest queued chunk is dropped to make room
// rather than blocking the broadcaster (and therefore the engine) on a slow
// listener. Write never returns an error; per-listener drops are not
// reported individually here.
func (b *Broadcaster) Write(chunk []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.sessions {
		select {
		case s.Chunks <- chunk:
		default:
			// Buffer full: drop the oldest queued chunk, then retry once.
			select {
			case <-s.Chunks:
			default:
			}
			select {
			case s.Chunks <- chunk:
			default:
			}
		}
	}
	return nil
}

// ActiveListeners returns the current number of connected sessions.
func (b *Broadcaster) ActiveListeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}
