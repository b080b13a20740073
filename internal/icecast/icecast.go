// Package icecast implements IcecastSink, a long-lived upstream client to a
// shoutcast-compatible server, with a bounded write buffer while
// disconnected and a linear-backoff reconnect loop.
package icecast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arung-agamani/denpa-radio/internal/metrics"
)

// DefaultBufferBytes bounds the amount of audio buffered while disconnected
// (1 MiB).
const DefaultBufferBytes = 1 << 20

// MaxReconnectAttempts caps the reconnect ladder before the sink gives up
// until the next explicit Connect call.
const MaxReconnectAttempts = 10

// State is the IcecastSink connection state machine.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config describes the upstream mount point and stream metadata.
type Config struct {
	Host        string
	Port        int
	Password    string
	Mount       string
	Name        string
	Description string
	Genre       string
	Bitrate     int
	SampleRate  int
	Channels    int
}

func (c Config) withDefaults() Config {
	if c.Mount == "" {
		c.Mount = "/radio.mp3"
	}
	if c.Bitrate == 0 {
		c.Bitrate = 128
	}
	if c.SampleRate == 0 {
		c.SampleRate = 44100
	}
	if c.Channels == 0 {
		c.Channels = 2
	}
	return c
}

// Sink is the IcecastSink: it shells out to ffmpeg as an icecast
// source-client, feeding it bytes pushed via Write and managing reconnects.
type Sink struct {
	cfg Config

	mu      sync.Mutex
	state   State
	buf     []byte
	stdin   io.WriteCloser
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	attempt int
}

// New builds a Sink for the given config. It does not connect until Connect
// is called.
func New(cfg Config) *Sink {
	return &Sink{cfg: cfg.withDefaults(), state: Disconnected}
}

// State returns the current connection state.
func (s *Sink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts (or restarts) the upstream ffmpeg source-client process.
// Callers normally invoke this once at startup and let reconnect handle the
// rest; ctx governs the process lifetime.
func (s *Sink) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Connecting || s.state == Connected {
		s.mu.Unlock()
		return nil
	}
	s.state = Connecting
	s.mu.Unlock()

	procCtx, cancel := context.WithCancel(ctx)
	url := fmt.Sprintf("icecast://source:%s@%s:%d%s", s.cfg.Password, s.cfg.Host, s.cfg.Port, s.cfg.Mount)

	args := []string{
		"-re",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-ac", fmt.Sprintf("%d", s.cfg.Channels),
		"-i", "pipe:0",
		"-f", "mp3",
		"-b:a", fmt.Sprintf("%dk", s.cfg.Bitrate),
		"-content_type", "audio/mpeg",
		"-ice_name", s.cfg.Name,
		"-ice_description", s.cfg.Description,
		"-ice_genre", s.cfg.Genre,
		"-ice_public", "1",
		url,
	}

	cmd := exec.CommandContext(procCtx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return fmt.Errorf("icecast: create stdin pipe: %w", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		cancel()
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return fmt.Errorf("icecast: start ffmpeg source client: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdin = stdin
	s.cancel = cancel
	s.state = Connected
	s.attempt = 0
	flushed := s.buf
	s.buf = nil
	s.mu.Unlock()

	slog.Info("icecast: connected", "host", s.cfg.Host, "port", s.cfg.Port, "mount", s.cfg.Mount)

	if len(flushed) > 0 {
		if _, err := stdin.Write(flushed); err != nil {
			slog.Warn("icecast: failed to flush buffered bytes on connect", "error", err)
		}
	}

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		// A failed Write may already have set Disconnected; only Disconnect
		// clears s.cmd, so this tells an unexpected exit from a teardown.
		wasConnected := s.cmd == cmd
		s.state = Disconnected
		s.stdin = nil
		s.cmd = nil
		s.mu.Unlock()

		if wasConnected {
			slog.Warn("icecast: upstream process exited", "error", err, "stderr", stderrBuf.String())
			go s.scheduleReconnect(ctx)
		}
	}()

	return nil
}

// Write sends audio bytes upstream. While disconnected, bytes are appended
// to a bounded buffer (oldest bytes dropped first, newest chunk always
// retained) rather than blocking or erroring. Write failures while
// connected transition the sink to Disconnected and schedule a reconnect;
// the caller (the engine) is never blocked or failed by this.
func (s *Sink) Write(chunk []byte) error {
	s.mu.Lock()
	if s.state != Connected || s.stdin == nil {
		s.bufferLocked(chunk)
		s.mu.Unlock()
		return nil
	}
	stdin := s.stdin
	s.mu.Unlock()

	if _, err := stdin.Write(chunk); err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.bufferLocked(chunk)
		s.mu.Unlock()
		slog.Warn("icecast: write failed, transitioning to disconnected", "error", err)
		return fmt.Errorf("icecast: write: %w", err)
	}
	return nil
}

// bufferLocked appends chunk to the pending buffer, dropping the oldest
// bytes first if it would overflow DefaultBufferBytes. Caller must hold s.mu.
func (s *Sink) bufferLocked(chunk []byte) {
	s.buf = append(s.buf, chunk...)
	if overflow := len(s.buf) - DefaultBufferBytes; overflow > 0 {
		s.buf = s.buf[overflow:]
	}
}

// scheduleReconnect runs the linear-backoff reconnect ladder: delay =
// min(5*attempt, 30)s, up to MaxReconnectAttempts, then gives up (logged)
// until the next explicit Connect call.
func (s *Sink) scheduleReconnect(ctx context.Context) {
	ladder := &linearBackoff{}
	// The first attempt is not a retry: MaxReconnectAttempts attempts in all.
	policy := backoff.WithMaxRetries(ladder, MaxReconnectAttempts-1)
	policy = backoff.WithContext(policy, ctx)

	err := backoff.Retry(func() error {
		s.mu.Lock()
		s.attempt++
		attempt := s.attempt
		s.mu.Unlock()

		slog.Info("icecast: reconnect attempt", "attempt", attempt)
		metrics.IcecastReconnects.Inc()
		if connErr := s.Connect(ctx); connErr != nil {
			return connErr
		}
		return nil
	}, policy)

	if err != nil {
		slog.Error("icecast: giving up after max reconnect attempts", "attempts", MaxReconnectAttempts, "error", err)
	}
}

// linearBackoff implements backoff.BackOff with a fixed ladder:
// delay = min(5*attempt, 30) seconds.
type linearBackoff struct {
	attempt int
}

func (l *linearBackoff) NextBackOff() time.Duration {
	l.attempt++
	secs := 5 * l.attempt
	if secs > 30 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

func (l *linearBackoff) Reset() {
	l.attempt = 0
}

// Disconnect tears down the upstream process, if any.
func (s *Sink) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.state = Disconnected
	s.stdin = nil
	s.cmd = nil
}

// BufferedBytes returns the number of bytes currently queued while
// disconnected.
func (s *Sink) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
