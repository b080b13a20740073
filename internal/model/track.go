// Package model holds the plain data types shared by the playback engine's
// components: the data each store persists and the engine plays.
package model

import "time"

// URLType identifies where a Track's bytes come from.
type URLType string

const (
	URLTypeYouTube    URLType = "youtube"
	URLTypeJioSaavn   URLType = "jiosaavn"
	URLTypeSoundCloud URLType = "soundcloud"
	URLTypeFallback   URLType = "fallback"
	URLTypeLocal      URLType = "local"
)

// DefaultBitrate is assumed for a Track until the engine probes the real
// value from the source file.
const DefaultBitrate = 128000

// Track is the unit the engine plays. Once a Track is on-deck, Title and URL
// are immutable; Bitrate is discovered lazily and then frozen.
type Track struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	URLType     URLType `json:"urlType"`
	Duration    int     `json:"duration"`
	RequestedBy string  `json:"requestedBy"`
	Bitrate     int     `json:"bitrate"`

	// BitrateProbed marks whether Bitrate came from a real probe rather
	// than the placeholder default, so it is probed at most once.
	BitrateProbed bool `json:"-"`
}

// NewTrack builds a Track with its defaults (RequestedBy "anonymous",
// Bitrate 128000) applied when the caller leaves them zero.
func NewTrack(title, url string, urlType URLType, duration int, requestedBy string) *Track {
	if requestedBy == "" {
		requestedBy = "anonymous"
	}
	return &Track{
		Title:       title,
		URL:         url,
		URLType:     urlType,
		Duration:    duration,
		RequestedBy: requestedBy,
		Bitrate:     DefaultBitrate,
	}
}

// WithCachePath returns a copy of the track whose URL points at a local cache
// path, used once MediaDownloader has materialised the track.
func (t *Track) WithCachePath(path string) *Track {
	clone := *t
	clone.URL = path
	return &clone
}

// QueueItem is a Track that has not yet been materialised to cache. It is
// the SongQueue's persisted element shape: identical to Track minus Bitrate,
// which is only known once a copy is actually playing.
type QueueItem struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	URLType     URLType `json:"urlType"`
	Duration    int     `json:"duration"`
	RequestedBy string  `json:"requestedBy"`
}

// ToTrack promotes a QueueItem to a Track with the default bitrate.
func (q *QueueItem) ToTrack() *Track {
	return NewTrack(q.Title, q.URL, q.URLType, q.Duration, q.RequestedBy)
}

// BlockEntry records a title that callers may no longer request. Uniqueness
// is by fuzzy match on SongName (token-set similarity >= 85), not exact
// string equality.
type BlockEntry struct {
	SongName    string    `json:"songName"`
	RequestedBy string    `json:"requestedBy"`
	BlockedAt   time.Time `json:"blockedAt"`
}

// DefaultPlaylist describes a standing source of filler tracks, keyed by
// PlaylistID.
type DefaultPlaylist struct {
	PlaylistID        string    `json:"playlistId"`
	Title             string    `json:"title"`
	Source            string    `json:"source"`
	IsActive          bool      `json:"isActive"`
	Genre             string    `json:"genre"`
	MetadataUpdatedAt time.Time `json:"metadataUpdatedAt"`
}

// Stale reports whether this playlist's metadata is older than the given
// threshold and due for a refresh.
func (d *DefaultPlaylist) Stale(threshold time.Duration) bool {
	return time.Since(d.MetadataUpdatedAt) > threshold
}

// DefaultPlaylistItem is a materialised Track derived from a DefaultPlaylist,
// additionally carrying the source PlaylistID so items can be filtered by
// genre/playlist.
type DefaultPlaylistItem struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	URLType     URLType `json:"urlType"`
	Duration    int     `json:"duration"`
	RequestedBy string  `json:"requestedBy"`
	PlaylistID  string  `json:"playlistId"`
	IsActive    bool    `json:"isActive"`
	Genre       string  `json:"genre"`
}

// ToTrack promotes a DefaultPlaylistItem to a playable Track.
func (d *DefaultPlaylistItem) ToTrack() *Track {
	return NewTrack(d.Title, d.URL, d.URLType, d.Duration, d.RequestedBy)
}
