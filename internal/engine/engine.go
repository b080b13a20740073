// Package engine implements PlaybackEngine: the state machine that owns the
// current track and drives the chunk pump to every registered sink.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arung-agamani/denpa-radio/internal/cache"
	"github.com/arung-agamani/denpa-radio/internal/fetcher"
	"github.com/arung-agamani/denpa-radio/internal/metrics"
	"github.com/arung-agamani/denpa-radio/internal/model"
	"github.com/arung-agamani/denpa-radio/internal/silence"
)

// Sink is the uniform chunk-consuming capability Broadcaster, IcecastSink
// and EventBus all provide; the engine multiplexes over a collection of
// them without knowing their identities.
type Sink interface {
	Write(chunk []byte) error
}

// ProgressReporter receives progress ticks; EventBus satisfies this via its
// Progress method, kept distinct from Sink because progress is structured,
// not a raw chunk.
type ProgressReporter interface {
	Progress(title string, elapsed time.Duration)
}

// TrackChangedReporter receives track-change notifications.
type TrackChangedReporter interface {
	TrackChanged(title string, duration int, requestedBy string)
}

// Config tunes the engine's pipeline parameters.
type Config struct {
	MinQueueSize int
	SampleRate   int
	Channels     int
	FFmpegPath   string
	FFprobePath  string
}

func (c Config) withDefaults() Config {
	if c.MinQueueSize <= 0 {
		c.MinQueueSize = 2
	}
	if c.SampleRate <= 0 {
		c.SampleRate = silence.DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	return c
}

type cmdType int

const (
	cmdSkip cmdType = iota
	cmdPrevious
	cmdSeek
)

type command struct {
	typ         cmdType
	seekSeconds int
}

// Engine is PlaybackEngine.
type Engine struct {
	cfg     Config
	fetcher *fetcher.Fetcher
	cache   *cache.FileCache

	sinksMu sync.RWMutex
	sinks   []Sink

	progress     ProgressReporter
	trackChanged TrackChangedReporter

	state stateBox

	tracksMu    sync.Mutex
	tracks      []*model.Track
	prefetching atomic.Bool

	cmdCh chan command

	transitioning atomic.Bool

	overrideMu sync.Mutex
	override   *model.Track
}

// New constructs an Engine. c is where fetched tracks are cache-checked
// before the downloader is invoked by the fetcher itself; it is also used
// by Previous() to confirm the prior track is still materialised.
func New(cfg Config, f *fetcher.Fetcher, c *cache.FileCache) *Engine {
	return &Engine{
		cfg:     cfg.withDefaults(),
		fetcher: f,
		cache:   c,
		cmdCh:   make(chan command, 1),
	}
}

// AddSink registers a chunk sink (Broadcaster, IcecastSink, EventBus, ...).
func (e *Engine) AddSink(s Sink) {
	e.sinksMu.Lock()
	defer e.sinksMu.Unlock()
	e.sinks = append(e.sinks, s)
}

// SetProgressReporter wires the EventBus (or equivalent) for progress ticks.
func (e *Engine) SetProgressReporter(r ProgressReporter) { e.progress = r }

// SetTrackChangedReporter wires the EventBus (or equivalent) for track-change
// notifications.
func (e *Engine) SetTrackChangedReporter(r TrackChangedReporter) { e.trackChanged = r }

// GetCurrent returns a snapshot of the current playback state.
func (e *Engine) GetCurrent() State {
	return e.state.get()
}

// GetUpcoming returns a copy of the on-deck buffer.
func (e *Engine) GetUpcoming() []*model.Track {
	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	out := make([]*model.Track, len(e.tracks))
	copy(out, e.tracks)
	return out
}

// Skip terminates the current transcoder and advances to the next track.
// A transition already in flight makes this a no-op (S3: exactly one new
// pipeline starts per overlapping pair of calls).
func (e *Engine) Skip() {
	e.enqueueTransition(command{typ: cmdSkip})
}

// Previous swaps current and previous and restarts the pipeline, but only
// if a previous track exists and its file is still in cache; otherwise it
// is a no-op.
func (e *Engine) Previous() {
	e.enqueueTransition(command{typ: cmdPrevious})
}

// Seek restarts the current pipeline from the given offset in seconds.
// Negative offsets are rejected at the boundary and never reach the engine.
func (e *Engine) Seek(seconds int) {
	if seconds < 0 {
		slog.Warn("engine: rejected negative seek offset", "seconds", seconds)
		return
	}
	e.enqueueTransition(command{typ: cmdSeek, seekSeconds: seconds})
}

// enqueueTransition is the serialisation point for Skip/Previous/Seek: a
// transition already in flight causes this call to return immediately
// without enqueuing a second command.
func (e *Engine) enqueueTransition(cmd command) {
	if !e.transitioning.CompareAndSwap(false, true) {
		slog.Debug("engine: transition already in flight, ignoring", "type", cmd.typ)
		return
	}
	select {
	case e.cmdCh <- cmd:
	default:
		// Should not happen given the CAS above serialises senders, but
		// never block a caller on a full channel.
		e.transitioning.Store(false)
	}
}

// Run is the engine loop: it owns EngineState exclusively and blocks until
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("engine: starting playback loop")
	for {
		if ctx.Err() != nil {
			slog.Info("engine: playback loop stopping")
			return
		}

		track := e.takeOverride()
		if track == nil {
			e.ensurePrefetch(ctx)
			track = e.popOnDeck()
		}

		if track == nil {
			e.playSilence(ctx)
			continue
		}

		e.playTrack(ctx, track)
	}
}

func (e *Engine) takeOverride() *model.Track {
	e.overrideMu.Lock()
	defer e.overrideMu.Unlock()
	t := e.override
	e.override = nil
	return t
}

func (e *Engine) setOverride(t *model.Track) {
	e.overrideMu.Lock()
	e.override = t
	e.overrideMu.Unlock()
}

// popOnDeck removes and returns the head of the on-deck buffer.
func (e *Engine) popOnDeck() *model.Track {
	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	if len(e.tracks) == 0 {
		return nil
	}
	t := e.tracks[0]
	e.tracks = e.tracks[1:]
	return t
}

// ensurePrefetch tops up the on-deck buffer to MinQueueSize. Only one
// prefetch runs at a time (S7: at most one pre-fetcher in-flight).
func (e *Engine) ensurePrefetch(ctx context.Context) {
	if !e.prefetching.CompareAndSwap(false, true) {
		return
	}
	defer e.prefetching.Store(false)

	for {
		e.tracksMu.Lock()
		n := len(e.tracks)
		e.tracksMu.Unlock()
		if n >= e.cfg.MinQueueSize {
			return
		}

		track, err := e.fetcher.FetchNext(ctx)
		if err != nil {
			slog.Error("engine: prefetch failed", "error", err)
			return
		}

		e.tracksMu.Lock()
		e.tracks = append(e.tracks, track)
		e.tracksMu.Unlock()
	}
}

// playSilence dispatches self-contained silent MP3 frames straight to the
// sinks until a track becomes available or ctx is cancelled. A real MP3
// frame needs no transcoder: silence.Generator already emits a valid frame
// header, so this pumps its output directly, pacing chunks to the frame's
// nominal bitrate since nothing upstream (no ffmpeg "-re") paces it for us.
func (e *Engine) playSilence(ctx context.Context) {
	slog.Info("engine: entering silence mode")

	e.state.set(State{Playing: false, StartedAt: time.Now()})

	gen := silence.NewGenerator(silence.DefaultBitrateKbps, e.cfg.SampleRate)
	bytesPerSecond := float64(silence.DefaultBitrateKbps*1000) / 8

	checkTicker := time.NewTicker(2 * time.Second)
	defer checkTicker.Stop()

	buf := make([]byte, ChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.cmdCh:
			// No pipeline to restart while silent; just release the CAS so
			// the caller's transition isn't left stuck in flight.
			e.transitioning.Store(false)
		case <-checkTicker.C:
			e.tracksMu.Lock()
			available := len(e.tracks) > 0
			e.tracksMu.Unlock()
			if available {
				return
			}
			e.ensurePrefetch(ctx)
		default:
			n, _ := gen.Read(buf)
			e.dispatch(buf[:n])

			pace := time.Duration(float64(n) / bytesPerSecond * float64(time.Second))
			select {
			case <-time.After(pace):
			case <-ctx.Done():
				return
			}
		}
	}
}

// readResult is one outcome of a transcoder stdout read: either a chunk of
// bytes or a terminal error (io.EOF on clean completion).
type readResult struct {
	chunk []byte
	err   error
}

func readLoop(r io.Reader, out chan<- readResult, stop <-chan struct{}) {
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- readResult{chunk: chunk}:
			case <-stop:
				return
			}
		}
		if err != nil {
			select {
			case out <- readResult{err: err}:
			case <-stop:
			}
			return
		}
	}
}

// dispatch fans chunk out to every registered sink (Broadcaster, Icecast,
// EventBus) in a single critical section so sinks see chunks in the same
// order. Sink errors are logged and never abort the pump.
func (e *Engine) dispatch(chunk []byte) {
	e.sinksMu.RLock()
	defer e.sinksMu.RUnlock()
	for _, s := range e.sinks {
		if err := s.Write(chunk); err != nil {
			slog.Debug("engine: sink write failed", "error", err)
		}
	}
}

// playTrack drives one track's pipeline to completion, transparently
// restarting it in place on Seek, and returns once the track ends (EOF,
// error, or Skip/Previous).
func (e *Engine) playTrack(ctx context.Context, track *model.Track) {
	ensureBitrate(e.cfg.FFprobePath, track)
	e.setCurrent(track)
	e.emitTrackChanged(track)

	stopTicker := e.startProgressTicker(track)
	defer stopTicker()

	offset := 0
	for {
		restart := e.runPipelineOnce(ctx, track, &offset)
		if restart {
			continue
		}
		return
	}
}

// setCurrent transitions EngineState to the given track becoming current.
func (e *Engine) setCurrent(track *model.Track) {
	prev := e.state.get()
	e.state.set(State{
		Current:       track,
		Previous:      prev.Current,
		Index:         prev.Index,
		Playing:       true,
		Transitioning: false,
		StartedAt:     time.Now(),
	})
}

func (e *Engine) emitTrackChanged(track *model.Track) {
	if e.trackChanged != nil {
		e.trackChanged.TrackChanged(track.Title, track.Duration, track.RequestedBy)
	}
}

func (e *Engine) startProgressTicker(track *model.Track) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if e.progress != nil {
					e.progress.Progress(track.Title, e.state.elapsed())
				}
			}
		}
	}()
	return func() { close(stop) }
}

// runPipelineOnce spawns the transcoder at *offset, pumps its output to the
// sinks, and returns true if the same track should be restarted in place
// (Seek updates *offset before returning true) or false if the track is
// finished (EOF, error, Skip) or a Previous swap queued an override.
func (e *Engine) runPipelineOnce(ctx context.Context, track *model.Track, offset *int) bool {
	pipelineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := spawnTranscode(pipelineCtx, e.cfg.FFmpegPath, track.URL, *offset, track.Bitrate, e.cfg.Channels)
	if err != nil {
		slog.Error("engine: transcoder spawn failed, treating as end of track", "title", track.Title, "error", err)
		e.advanceAfterTrack(track)
		return false
	}
	defer p.terminate()

	resultCh := make(chan readResult, 4)
	stop := make(chan struct{})
	go readLoop(p.stdout, resultCh, stop)
	defer close(stop)

	for {
		select {
		case <-ctx.Done():
			return false

		case cmd := <-e.cmdCh:
			switch cmd.typ {
			case cmdSkip:
				e.advanceAfterTrack(track)
				e.transitioning.Store(false)
				return false

			case cmdPrevious:
				snap := e.state.get()
				if snap.Previous == nil {
					e.transitioning.Store(false)
					continue
				}
				if _, ok := e.cache.Lookup(snap.Previous.Title); !ok {
					e.transitioning.Store(false)
					continue
				}
				e.setOverride(snap.Previous)
				e.transitioning.Store(false)
				return false

			case cmdSeek:
				*offset = cmd.seekSeconds
				e.state.set(State{
					Current:       track,
					Previous:      e.state.get().Previous,
					Playing:       true,
					Transitioning: false,
					StartedAt:     time.Now().Add(-time.Duration(cmd.seekSeconds) * time.Second),
				})
				e.transitioning.Store(false)
				return true
			}

		case res := <-resultCh:
			if res.err != nil {
				if !errors.Is(res.err, io.EOF) {
					slog.Warn("engine: transcoder pipe error, treating as end of track", "title", track.Title, "error", res.err)
				}
				e.advanceAfterTrack(track)
				return false
			}
			e.dispatch(res.chunk)
		}
	}
}

// advanceAfterTrack shifts previous<-current and bumps the sequence index;
// it is called whenever a track's pipeline ends for any reason other than a
// queued Previous override.
func (e *Engine) advanceAfterTrack(track *model.Track) {
	metrics.TracksPlayed.Inc()
	prev := e.state.get()
	e.state.set(State{
		Current:       nil,
		Previous:      track,
		Index:         prev.Index + 1,
		Playing:       false,
		Transitioning: false,
	})
}
