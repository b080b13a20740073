// Package eventbus publishes typed playback events (track changes, progress,
// raw stream chunks, the buffer header) to subscribed listener sessions over
// long-lived websocket connections, heartbeated with ping/pong.
package eventbus

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventType enumerates the events EventBus can publish.
type EventType string

const (
	EventTrackChanged EventType = "trackChanged"
	EventProgress     EventType = "progress"
	EventStream       EventType = "stream"
	EventBufferHeader EventType = "bufferHeader"

	// eventPing never reaches a client as JSON; writeEvent intercepts it and
	// writes a websocket ping control frame instead. It travels through
	// sub.send like any other event so the write side stays single-owner.
	eventPing EventType = "__ping"
)

// HeartbeatInterval is how often the server pings a subscriber; absence of a
// pong within the next interval marks the session dead.
const HeartbeatInterval = 30 * time.Second

// Event is a single published message. Payload is nil for Stream/BufferHeader
// events, whose bytes travel in Chunk instead.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Chunk   []byte      `json:"-"`
}

// TrackChangedPayload is the payload of an EventTrackChanged event.
type TrackChangedPayload struct {
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	RequestedBy string `json:"requestedBy"`
}

// ProgressPayload is the payload of an EventProgress event.
type ProgressPayload struct {
	Title   string  `json:"title"`
	Elapsed float64 `json:"elapsed_seconds"`
}

// subscriber wraps one websocket connection with its outbound queue.
type subscriber struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan Event
	closed chan struct{}
}

// EventBus fans typed events out to every connected subscriber and tracks
// the most recent bufferHeader chunk so new joiners can prime their decoder
// immediately on connect.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
	lastHeader  []byte
}

// New creates an empty EventBus.
func New() *EventBus {
	return &EventBus{subscribers: make(map[uuid.UUID]*subscriber)}
}

// Subscribe registers a websocket connection, starts its write pump and
// heartbeat, and immediately sends the last known bufferHeader (if any).
// It returns the subscriber's ID, usable with Unsubscribe.
func (b *EventBus) Subscribe(conn *websocket.Conn) uuid.UUID {
	sub := &subscriber{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan Event, 64),
		closed: make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub.id] = sub
	header := b.lastHeader
	b.mu.Unlock()

	go b.writePump(sub)
	go b.heartbeat(sub)

	if header != nil {
		sub.send <- Event{Type: EventBufferHeader, Chunk: header}
	}

	slog.Debug("eventbus: subscriber added", "id", sub.id)
	return sub.id
}

// Unsubscribe removes a subscriber and closes its connection.
func (b *EventBus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.closed)
		sub.conn.Close()
	}
}

// Publish fans an event out to all subscribers. Sends are non-blocking:
// a subscriber whose queue is full has the oldest queued event dropped
// rather than stalling the publisher.
func (b *EventBus) Publish(ev Event) {
	if ev.Type == EventBufferHeader {
		b.mu.Lock()
		b.lastHeader = ev.Chunk
		b.mu.Unlock()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.send <- ev:
		default:
			select {
			case <-sub.send:
			default:
			}
			select {
			case sub.send <- ev:
			default:
			}
		}
	}
}

// TrackChanged publishes an EventTrackChanged event.
func (b *EventBus) TrackChanged(title string, duration int, requestedBy string) {
	b.Publish(Event{Type: EventTrackChanged, Payload: TrackChangedPayload{
		Title: title, Duration: duration, RequestedBy: requestedBy,
	}})
}

// Progress publishes an EventProgress event.
func (b *EventBus) Progress(title string, elapsed time.Duration) {
	b.Publish(Event{Type: EventProgress, Payload: ProgressPayload{
		Title: title, Elapsed: elapsed.Seconds(),
	}})
}

// Write publishes a raw stream chunk as an EventStream event (satisfies the uniform chunk-sink
// capability the engine multiplexes over alongside Broadcaster/IcecastSink).
func (b *EventBus) Write(chunk []byte) error {
	b.Publish(Event{Type: EventStream, Chunk: chunk})
	return nil
}

// BufferHeader publishes (and remembers) the first chunk new joiners need to
// start decoding mid-stream.
func (b *EventBus) BufferHeader(chunk []byte) {
	b.Publish(Event{Type: EventBufferHeader, Chunk: chunk})
}

// writePump drains sub.send to the websocket connection until closed.
func (b *EventBus) writePump(sub *subscriber) {
	for {
		select {
		case <-sub.closed:
			return
		case ev, ok := <-sub.send:
			if !ok {
				return
			}
			if err := writeEvent(sub.conn, ev); err != nil {
				slog.Debug("eventbus: write failed, dropping subscriber", "id", sub.id, "error", err)
				b.Unsubscribe(sub.id)
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev Event) error {
	if ev.Type == eventPing {
		return conn.WriteMessage(websocket.PingMessage, nil)
	}
	if ev.Chunk != nil {
		envelope := struct {
			Type EventType `json:"type"`
		}{Type: ev.Type}
		header, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, header); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, ev.Chunk)
	}
	return conn.WriteJSON(ev)
}

// heartbeat pings the subscriber every HeartbeatInterval; a missing pong
// within the next interval marks the session dead and disconnects it. The
// ping itself is enqueued on sub.send rather than written to the connection
// here, since writePump is the only goroutine allowed to call the
// websocket's write methods.
func (b *EventBus) heartbeat(sub *subscriber) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	pongCh := make(chan struct{}, 1)
	sub.conn.SetPongHandler(func(string) error {
		select {
		case pongCh <- struct{}{}:
		default:
		}
		return nil
	})

	for {
		select {
		case <-sub.closed:
			return
		case <-ticker.C:
			select {
			case sub.send <- Event{Type: eventPing}:
			case <-sub.closed:
				return
			}
			select {
			case <-pongCh:
			case <-time.After(HeartbeatInterval):
				slog.Debug("eventbus: subscriber missed pong, disconnecting", "id", sub.id)
				b.Unsubscribe(sub.id)
				return
			case <-sub.closed:
				return
			}
		}
	}
}

// SubscriberCount returns the current number of connected subscribers.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
