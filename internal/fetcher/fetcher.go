// Package fetcher implements NextTrackFetcher: the explicit state machine
// that decides what plays next, trying the user queue, then the default
// playlists, then a local fallback directory, with bounded retry on
// failure.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arung-agamani/denpa-radio/internal/cache"
	"github.com/arung-agamani/denpa-radio/internal/media"
	"github.com/arung-agamani/denpa-radio/internal/model"
	"github.com/arung-agamani/denpa-radio/internal/store"
)

// MaxRetries bounds the number of consecutive head-of-line failures
// NextTrackFetcher tolerates before giving up on a single FetchNext call.
const MaxRetries = 3

// MetadataStaleAfter is how old a DefaultPlaylist's metadata may get before
// a refresh is scheduled.
const MetadataStaleAfter = 48 * time.Hour

// ErrExhausted is returned when FetchNext fails MaxRetries times in a row.
var ErrExhausted = errors.New("fetcher: exhausted retries without a playable track")

// MetadataResolver is the external collaborator that turns a DefaultPlaylist
// into fresh DefaultPlaylistItem entries. Its implementation (catalog
// search, video-host metadata, etc.) is out of scope for this engine; the
// fetcher only calls the interface.
type MetadataResolver interface {
	RefreshPlaylist(ctx context.Context, playlist model.DefaultPlaylist) ([]model.DefaultPlaylistItem, error)
}

// GenreProvider supplies the currently configured default-playlist genre
// filter ("all" disables the predicate). It is a function type so the
// engine can back it with whatever common-config store it already has.
type GenreProvider func() string

// Fetcher is NextTrackFetcher.
type Fetcher struct {
	Queue           *store.SongQueue
	DefaultPlaylist *store.DefaultPlaylistStore
	Metadata        *store.DefaultPlaylistMetadataStore
	Cache           *cache.FileCache
	Downloader      *media.Downloader
	Resolver        MetadataResolver
	FallbackDir     string
	Genre           GenreProvider
}

// FetchNext produces the next playable Track: queue head, else
// default-playlist/fallback pick; cache hit short-circuits
// the downloader; on failure the head is popped and the attempt retried, up
// to MaxRetries times.
func (f *Fetcher) FetchNext(ctx context.Context) (*model.Track, error) {
	var lastErr error

	for attempt := 0; attempt < MaxRetries; attempt++ {
		track, fromQueue, err := f.selectCandidate(ctx)
		if err != nil {
			lastErr = err
			slog.Error("fetcher: candidate selection failed", "attempt", attempt+1, "error", err)
			continue
		}

		if cached, ok := f.Cache.Lookup(track.Title); ok {
			if fromQueue {
				f.Queue.RemoveFront()
			}
			return track.WithCachePath(cached), nil
		}

		resolved, err := f.Downloader.Fetch(ctx, track)
		if err != nil {
			lastErr = err
			if fromQueue {
				f.Queue.RemoveFront()
			}
			slog.Error("fetcher: download failed, retrying", "title", track.Title, "attempt", attempt+1, "error", err)
			continue
		}

		if fromQueue {
			f.Queue.RemoveFront()
		}
		return resolved, nil
	}

	if lastErr == nil {
		lastErr = ErrExhausted
	}
	return nil, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// selectCandidate implements steps 1-2 of the algorithm: queue head first,
// else EmptyQueueHandler. The bool return reports whether the candidate
// came from the user queue (and therefore must be popped on both success
// and failure paths).
func (f *Fetcher) selectCandidate(ctx context.Context) (*model.Track, bool, error) {
	if item, ok := f.Queue.First(); ok {
		return item.ToTrack(), true, nil
	}

	track, err := f.emptyQueueHandler(ctx)
	return track, false, err
}

// emptyQueueHandler implements step 2 of the algorithm: filter active
// default playlists by genre, refresh stale metadata, gather matching
// materialised items and pick one uniformly at random, falling back to a
// random fallback-directory track if nothing matches.
func (f *Fetcher) emptyQueueHandler(ctx context.Context) (*model.Track, error) {
	genre := ""
	if f.Genre != nil {
		genre = f.Genre()
	}

	active := f.DefaultPlaylist.Active(genre)
	for _, pl := range active {
		if pl.Stale(MetadataStaleAfter) {
			f.refreshPlaylist(ctx, pl)
		}
	}

	activeFlag := true
	items := f.Metadata.Filter(store.MetadataFilter{
		Genre:  genre,
		Active: &activeFlag,
	})
	if len(items) == 0 {
		return f.fallbackTrack()
	}

	pick := items[rand.Intn(len(items))]
	return pick.ToTrack(), nil
}

// refreshPlaylist asks the MetadataResolver for fresh items and replaces
// this playlist's entries in the metadata store. Failures are logged; a
// resolver failure never blocks playback, it only leaves stale data in
// place for the next attempt.
func (f *Fetcher) refreshPlaylist(ctx context.Context, pl model.DefaultPlaylist) {
	if f.Resolver == nil {
		return
	}

	items, err := f.Resolver.RefreshPlaylist(ctx, pl)
	if err != nil {
		slog.Error("fetcher: metadata refresh failed", "playlistId", pl.PlaylistID, "error", err)
		return
	}

	existing := f.Metadata.Filter(store.MetadataFilter{PlaylistID: pl.PlaylistID})
	for _, e := range existing {
		if idx := indexByURL(f.Metadata.All(), e.URL); idx > 0 {
			f.Metadata.RemoveAt(idx)
		}
	}
	if _, err := f.Metadata.AppendMany(items); err != nil {
		slog.Error("fetcher: failed to persist refreshed metadata", "playlistId", pl.PlaylistID, "error", err)
		return
	}

	pl.MetadataUpdatedAt = time.Now()
	f.replaceDefaultPlaylist(pl)
	slog.Info("fetcher: refreshed playlist metadata", "playlistId", pl.PlaylistID, "items", len(items))
}

func (f *Fetcher) replaceDefaultPlaylist(pl model.DefaultPlaylist) {
	all := f.DefaultPlaylist.All()
	for i, existing := range all {
		if existing.PlaylistID == pl.PlaylistID {
			f.DefaultPlaylist.RemoveAt(i + 1)
			break
		}
	}
	f.DefaultPlaylist.Append(pl)
}

func indexByURL(items []model.DefaultPlaylistItem, url string) int {
	for i, it := range items {
		if it.URL == url {
			return i + 1
		}
	}
	return 0
}

// fallbackTrack picks a random *.mp3 from the fallback directory.
func (f *Fetcher) fallbackTrack() (*model.Track, error) {
	entries, err := os.ReadDir(f.FallbackDir)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read fallback directory %q: %w", f.FallbackDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mp3") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("fetcher: no fallback tracks available in %q", f.FallbackDir)
	}

	chosen := files[rand.Intn(len(files))]
	title := strings.TrimSuffix(chosen, ".mp3")
	track := model.NewTrack(title, filepath.Join(f.FallbackDir, chosen), model.URLTypeFallback, 0, "fallback")
	return track, nil
}
