package store

import (
	"errors"
	"strings"

	"github.com/arung-agamani/denpa-radio/internal/model"
)

// DefaultPlaylistStore holds the standing filler-playlist definitions, keyed
// by PlaylistID.
type DefaultPlaylistStore struct {
	*Store[model.DefaultPlaylist]
}

// NewDefaultPlaylistStore opens (or creates) the default-playlist file at path.
func NewDefaultPlaylistStore(path string) (*DefaultPlaylistStore, error) {
	s, err := New(path, Policy[model.DefaultPlaylist]{
		Validate: validateDefaultPlaylist,
		DedupKey: func(p model.DefaultPlaylist) string { return p.PlaylistID },
	})
	if err != nil {
		return nil, err
	}
	return &DefaultPlaylistStore{s}, nil
}

func validateDefaultPlaylist(p model.DefaultPlaylist) error {
	if strings.TrimSpace(p.PlaylistID) == "" {
		return errors.Join(ErrInvalid, errors.New("playlistId is required"))
	}
	return nil
}

// Active returns the subset of playlists with IsActive set, optionally
// filtered by genre ("" or "all" disables the genre predicate).
func (d *DefaultPlaylistStore) Active(genre string) []model.DefaultPlaylist {
	all := d.All()
	out := make([]model.DefaultPlaylist, 0, len(all))
	for _, p := range all {
		if !p.IsActive {
			continue
		}
		if genre != "" && genre != "all" && p.Genre != genre {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DefaultPlaylistMetadataStore holds materialised items derived from the
// active default playlists, deduped by URL and filterable by urlType /
// playlistId / isActive / genre.
type DefaultPlaylistMetadataStore struct {
	*Store[model.DefaultPlaylistItem]
}

// NewDefaultPlaylistMetadataStore opens (or creates) the metadata file at path.
func NewDefaultPlaylistMetadataStore(path string) (*DefaultPlaylistMetadataStore, error) {
	s, err := New(path, Policy[model.DefaultPlaylistItem]{
		Validate: validateDefaultPlaylistItem,
		DedupKey: func(i model.DefaultPlaylistItem) string { return i.URL },
	})
	if err != nil {
		return nil, err
	}
	return &DefaultPlaylistMetadataStore{s}, nil
}

func validateDefaultPlaylistItem(i model.DefaultPlaylistItem) error {
	if strings.TrimSpace(i.Title) == "" {
		return errors.Join(ErrInvalid, errors.New("title is required"))
	}
	if strings.TrimSpace(i.URL) == "" {
		return errors.Join(ErrInvalid, errors.New("url is required"))
	}
	return nil
}

// MetadataFilter selects a subset of DefaultPlaylistMetadataStore entries.
// Zero-value fields are treated as "no constraint" except IsActive, which is
// only honored when Active is non-nil.
type MetadataFilter struct {
	URLType    model.URLType
	PlaylistID string
	Genre      string
	Active     *bool
}

// Filter returns the items matching f.
func (d *DefaultPlaylistMetadataStore) Filter(f MetadataFilter) []model.DefaultPlaylistItem {
	all := d.All()
	out := make([]model.DefaultPlaylistItem, 0, len(all))
	for _, item := range all {
		if f.URLType != "" && item.URLType != f.URLType {
			continue
		}
		if f.PlaylistID != "" && item.PlaylistID != f.PlaylistID {
			continue
		}
		if f.Genre != "" && f.Genre != "all" && item.Genre != f.Genre {
			continue
		}
		if f.Active != nil && item.IsActive != *f.Active {
			continue
		}
		out = append(out, item)
	}
	return out
}
