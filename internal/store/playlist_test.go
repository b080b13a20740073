package store

import (
	"path/filepath"
	"testing"

	"github.com/arung-agamani/denpa-radio/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlaylistStoreRejectsBlankID(t *testing.T) {
	s, err := NewDefaultPlaylistStore(filepath.Join(t.TempDir(), "playlists.json"))
	require.NoError(t, err)

	ok, err := s.Append(model.DefaultPlaylist{PlaylistID: ""})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDefaultPlaylistStoreDedupsByPlaylistID(t *testing.T) {
	s, err := NewDefaultPlaylistStore(filepath.Join(t.TempDir(), "playlists.json"))
	require.NoError(t, err)

	ok, _ := s.Append(model.DefaultPlaylist{PlaylistID: "p1"})
	require.True(t, ok)
	ok, _ = s.Append(model.DefaultPlaylist{PlaylistID: "p1"})
	require.False(t, ok)
}

func TestDefaultPlaylistStoreActiveFiltersByGenreAndIsActive(t *testing.T) {
	s, err := NewDefaultPlaylistStore(filepath.Join(t.TempDir(), "playlists.json"))
	require.NoError(t, err)

	_, _ = s.Append(model.DefaultPlaylist{PlaylistID: "p1", IsActive: true, Genre: "lofi"})
	_, _ = s.Append(model.DefaultPlaylist{PlaylistID: "p2", IsActive: false, Genre: "lofi"})
	_, _ = s.Append(model.DefaultPlaylist{PlaylistID: "p3", IsActive: true, Genre: "jazz"})

	lofi := s.Active("lofi")
	require.Len(t, lofi, 1)
	require.Equal(t, "p1", lofi[0].PlaylistID)

	all := s.Active("all")
	require.Len(t, all, 2)
}

func TestDefaultPlaylistMetadataStoreDedupsByURL(t *testing.T) {
	s, err := NewDefaultPlaylistMetadataStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)

	ok, _ := s.Append(model.DefaultPlaylistItem{Title: "A", URL: "http://x/a.mp3"})
	require.True(t, ok)
	ok, _ = s.Append(model.DefaultPlaylistItem{Title: "A dup", URL: "http://x/a.mp3"})
	require.False(t, ok)
}

func TestDefaultPlaylistMetadataStoreFilter(t *testing.T) {
	s, err := NewDefaultPlaylistMetadataStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)

	_, _ = s.Append(model.DefaultPlaylistItem{Title: "A", URL: "http://x/a.mp3", URLType: model.URLTypeYouTube, PlaylistID: "p1", Genre: "lofi", IsActive: true})
	_, _ = s.Append(model.DefaultPlaylistItem{Title: "B", URL: "http://x/b.mp3", URLType: model.URLTypeSoundCloud, PlaylistID: "p2", Genre: "jazz", IsActive: false})

	active := true
	filtered := s.Filter(MetadataFilter{URLType: model.URLTypeYouTube, Active: &active})
	require.Len(t, filtered, 1)
	require.Equal(t, "A", filtered[0].Title)

	byGenre := s.Filter(MetadataFilter{Genre: "jazz"})
	require.Len(t, byGenre, 1)
	require.Equal(t, "B", byGenre[0].Title)
}
