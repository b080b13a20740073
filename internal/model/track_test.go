package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTrackDefaultsRequestedByAnonymous(t *testing.T) {
	tr := NewTrack("Title", "http://example.com/a.mp3", URLTypeYouTube, 180, "")
	require.Equal(t, "anonymous", tr.RequestedBy)
	require.Equal(t, DefaultBitrate, tr.Bitrate)
	require.False(t, tr.BitrateProbed)
}

func TestNewTrackKeepsExplicitRequestedBy(t *testing.T) {
	tr := NewTrack("Title", "http://example.com/a.mp3", URLTypeYouTube, 180, "alice")
	require.Equal(t, "alice", tr.RequestedBy)
}

func TestWithCachePathDoesNotMutateOriginal(t *testing.T) {
	tr := NewTrack("Title", "http://example.com/a.mp3", URLTypeYouTube, 180, "alice")
	cached := tr.WithCachePath("/cache/title.mp3")

	require.Equal(t, "/cache/title.mp3", cached.URL)
	require.Equal(t, "http://example.com/a.mp3", tr.URL)
}

func TestQueueItemToTrackAppliesDefaults(t *testing.T) {
	q := QueueItem{Title: "Song", URL: "http://x/y.mp3", URLType: URLTypeSoundCloud, Duration: 200}
	tr := q.ToTrack()

	require.Equal(t, "Song", tr.Title)
	require.Equal(t, "anonymous", tr.RequestedBy)
	require.Equal(t, DefaultBitrate, tr.Bitrate)
}

func TestDefaultPlaylistStale(t *testing.T) {
	fresh := DefaultPlaylist{MetadataUpdatedAt: time.Now()}
	require.False(t, fresh.Stale(time.Hour))

	stale := DefaultPlaylist{MetadataUpdatedAt: time.Now().Add(-2 * time.Hour)}
	require.True(t, stale.Stale(time.Hour))
}

func TestDefaultPlaylistItemToTrack(t *testing.T) {
	item := DefaultPlaylistItem{Title: "Filler", URL: "http://x/fill.mp3", URLType: URLTypeLocal, Duration: 90, PlaylistID: "p1"}
	tr := item.ToTrack()

	require.Equal(t, "Filler", tr.Title)
	require.Equal(t, URLTypeLocal, tr.URLType)
}
