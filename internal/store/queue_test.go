package store

import (
	"path/filepath"
	"testing"

	"github.com/arung-agamani/denpa-radio/internal/model"
	"github.com/stretchr/testify/require"
)

func TestSongQueueRejectsBlankTitleOrURL(t *testing.T) {
	q, err := NewSongQueue(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)

	ok, err := q.Append(model.QueueItem{Title: "", URL: "http://x"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = q.Append(model.QueueItem{Title: "Song", URL: ""})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSongQueueDedupsByURL(t *testing.T) {
	q, err := NewSongQueue(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)

	ok, err := q.Append(model.QueueItem{Title: "Song", URL: "http://x/a.mp3"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.Append(model.QueueItem{Title: "Song Again", URL: "http://x/a.mp3"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, q.Len())
}

func TestBlockListIsBlockedFuzzyMatch(t *testing.T) {
	b, err := NewBlockList(filepath.Join(t.TempDir(), "block.json"))
	require.NoError(t, err)

	ok, err := b.Append(model.BlockEntry{SongName: "Shape of You", RequestedBy: "alice"})
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, b.IsBlocked("shape of you"))
	require.True(t, b.IsBlocked("Shape of You (Remix)"))
	require.False(t, b.IsBlocked("Bohemian Rhapsody"))
}

func TestBlockListFormatStampsBlockedAt(t *testing.T) {
	b, err := NewBlockList(filepath.Join(t.TempDir(), "block.json"))
	require.NoError(t, err)

	_, err = b.Append(model.BlockEntry{SongName: "Song"})
	require.NoError(t, err)

	entries := b.All()
	require.Len(t, entries, 1)
	require.False(t, entries[0].BlockedAt.IsZero())
}

func TestBlockListFindSimilarReturnsOneBasedIndex(t *testing.T) {
	b, err := NewBlockList(filepath.Join(t.TempDir(), "block.json"))
	require.NoError(t, err)

	_, _ = b.Append(model.BlockEntry{SongName: "First Song"})
	_, _ = b.Append(model.BlockEntry{SongName: "Second Song"})

	idx := b.FindSimilar("second song")
	require.Equal(t, 2, idx)

	require.Equal(t, 0, b.FindSimilar("Totally Unrelated Title"))
}
