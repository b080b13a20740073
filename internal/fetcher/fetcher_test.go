package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arung-agamani/denpa-radio/internal/cache"
	"github.com/arung-agamani/denpa-radio/internal/media"
	"github.com/arung-agamani/denpa-radio/internal/model"
	"github.com/arung-agamani/denpa-radio/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) (*Fetcher, *cache.FileCache) {
	t.Helper()
	dir := t.TempDir()

	queue, err := store.NewSongQueue(filepath.Join(dir, "queue.json"))
	require.NoError(t, err)
	playlists, err := store.NewDefaultPlaylistStore(filepath.Join(dir, "playlists.json"))
	require.NoError(t, err)
	metadata, err := store.NewDefaultPlaylistMetadataStore(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	fc, err := cache.New(filepath.Join(dir, "cache"), cache.DefaultMaxBytes)
	require.NoError(t, err)

	fallbackDir := filepath.Join(dir, "fallback")
	require.NoError(t, os.MkdirAll(fallbackDir, 0o755))

	f := &Fetcher{
		Queue:           queue,
		DefaultPlaylist: playlists,
		Metadata:        metadata,
		Cache:           fc,
		Downloader:      media.New(fc, "", t.TempDir(), nil),
		FallbackDir:     fallbackDir,
		Genre:           func() string { return "all" },
	}
	return f, fc
}

func TestFetchNextPrefersQueueHeadWhenCached(t *testing.T) {
	f, fc := newTestFetcher(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "cached.mp3")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	_, err := fc.Admit(src, "Queued Song")
	require.NoError(t, err)

	_, err = f.Queue.Append(model.QueueItem{Title: "Queued Song", URL: "http://example.com/a.mp3"})
	require.NoError(t, err)

	track, err := f.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Queued Song", track.Title)
	require.Equal(t, 0, f.Queue.Len(), "cache-hit queue item must be popped")
}

func TestFetchNextFallsBackWhenQueueEmptyAndNoPlaylists(t *testing.T) {
	f, _ := newTestFetcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(f.FallbackDir, "Filler Track.mp3"), []byte("x"), 0o644))

	track, err := f.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Filler Track", track.Title)
	require.Equal(t, model.URLTypeFallback, track.URLType)
}

func TestFetchNextExhaustsWhenNothingAvailable(t *testing.T) {
	f, _ := newTestFetcher(t)

	_, err := f.FetchNext(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestEmptyQueueHandlerFiltersByGenreAndActive(t *testing.T) {
	f, fc := newTestFetcher(t)
	f.Genre = func() string { return "lofi" }

	_, err := f.DefaultPlaylist.Append(model.DefaultPlaylist{PlaylistID: "p1", IsActive: true, Genre: "lofi"})
	require.NoError(t, err)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "lofi.mp3")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	_, err = fc.Admit(src, "Lofi Track")
	require.NoError(t, err)

	_, err = f.Metadata.Append(model.DefaultPlaylistItem{
		Title: "Lofi Track", URL: "http://x/lofi.mp3", PlaylistID: "p1", Genre: "lofi", IsActive: true,
	})
	require.NoError(t, err)

	track, err := f.emptyQueueHandler(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Lofi Track", track.Title)
}

func TestFallbackTrackPicksAnMP3File(t *testing.T) {
	f, _ := newTestFetcher(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.FallbackDir, "Song One.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.FallbackDir, "notes.txt"), []byte("x"), 0o644))

	track, err := f.fallbackTrack()
	require.NoError(t, err)
	require.Equal(t, "Song One", track.Title)
	require.Equal(t, model.URLTypeFallback, track.URLType)
}

func TestFallbackTrackErrorsWhenDirectoryEmpty(t *testing.T) {
	f, _ := newTestFetcher(t)
	_, err := f.fallbackTrack()
	require.Error(t, err)
}
