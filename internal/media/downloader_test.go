package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arung-agamani/denpa-radio/internal/cache"
	"github.com/arung-agamani/denpa-radio/internal/model"
)

func newTestDownloader(t *testing.T) (*Downloader, *cache.FileCache) {
	t.Helper()
	fc, err := cache.New(filepath.Join(t.TempDir(), "cache"), cache.DefaultMaxBytes)
	require.NoError(t, err)
	d := New(fc, "", t.TempDir(), nil)
	return d, fc
}

func TestFetchReturnsCachedTrackWithoutTouchingSource(t *testing.T) {
	d, fc := newTestDownloader(t)

	src := filepath.Join(t.TempDir(), "source.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o644))
	_, err := fc.Admit(src, "Cached Song")
	require.NoError(t, err)

	track := &model.Track{Title: "Cached Song", URLType: model.URLTypeYouTube, URL: "https://youtube.com/watch?v=unused"}
	got, err := d.Fetch(context.Background(), track)
	require.NoError(t, err)
	require.Contains(t, got.URL, "cache")
}

func TestFetchPassesThroughFallbackAndLocalTracksUnchanged(t *testing.T) {
	d, _ := newTestDownloader(t)

	fallback := &model.Track{Title: "Fallback Song", URLType: model.URLTypeFallback, URL: "/srv/fallback/song.mp3"}
	got, err := d.Fetch(context.Background(), fallback)
	require.NoError(t, err)
	require.Equal(t, fallback.URL, got.URL)

	local := &model.Track{Title: "Local Song", URLType: model.URLTypeLocal, URL: "/srv/local/song.mp3"}
	got, err = d.Fetch(context.Background(), local)
	require.NoError(t, err)
	require.Equal(t, local.URL, got.URL)
}

func TestFetchRejectsUnsupportedURLType(t *testing.T) {
	d, _ := newTestDownloader(t)

	track := &model.Track{Title: "Mystery Song", URLType: model.URLType("carrier-pigeon")}
	_, err := d.Fetch(context.Background(), track)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "Mystery Song", fetchErr.Title)
}

func TestDownloadViaYtDLPFailsFastOnMissingBinary(t *testing.T) {
	d, _ := newTestDownloader(t)
	d.YtDLPPath = "/no/such/yt-dlp-binary"

	track := &model.Track{Title: "Unreachable", URLType: model.URLTypeYouTube, URL: "https://youtube.com/watch?v=x"}
	_, err := d.Fetch(context.Background(), track)
	require.Error(t, err)
}

func TestHasUsableCookiesFalseWhenPathUnset(t *testing.T) {
	d, _ := newTestDownloader(t)
	require.False(t, d.hasUsableCookies())
}

func TestHasUsableCookiesFalseWhenFileHasNoYouTubeCookie(t *testing.T) {
	d, _ := newTestDownloader(t)
	cookiesPath := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookiesPath, []byte("# Netscape HTTP Cookie File\nexample.com\tTRUE\t/\tFALSE\t0\tfoo\tbar\n"), 0o644))
	d.CookiesPath = cookiesPath
	require.False(t, d.hasUsableCookies())
}

func TestHasUsableCookiesTrueWhenYouTubeCookiePresent(t *testing.T) {
	d, _ := newTestDownloader(t)
	cookiesPath := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookiesPath, []byte(".youtube.com\tTRUE\t/\tFALSE\t0\tfoo\tbar\n"), 0o644))
	d.CookiesPath = cookiesPath
	require.True(t, d.hasUsableCookies())
}

func TestDownloadToFileStreamsResponseBody(t *testing.T) {
	d, _ := newTestDownloader(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake mp3 bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp3")
	require.NoError(t, d.downloadToFile(context.Background(), srv.URL, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "fake mp3 bytes", string(got))
}

func TestDownloadToFileErrorsOnNonOKStatus(t *testing.T) {
	d, _ := newTestDownloader(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp3")
	err := d.downloadToFile(context.Background(), srv.URL, dest)
	require.Error(t, err)
}

func TestTranscodeQuality6FailsFastOnMissingBinary(t *testing.T) {
	d, _ := newTestDownloader(t)
	d.FFmpegPath = "/no/such/ffmpeg-binary"

	src := filepath.Join(t.TempDir(), "in.mp3")
	require.NoError(t, os.WriteFile(src, []byte("raw"), 0o644))

	err := d.transcodeQuality6(context.Background(), src, filepath.Join(t.TempDir(), "out.mp3"))
	require.Error(t, err)
}

func TestSanitizeFilenameStripsForbiddenCharsAndJoinsWithUnderscore(t *testing.T) {
	got := sanitizeFilename(`Song: "Title" <feat. X>/\|?*`)
	require.Equal(t, "Song_Title_feat._X", got)
}

// id3v1Tag builds a minimal 128-byte ID3v1 trailer, the format dhowden/tag
// reads when no ID3v2 header is present.
func id3v1Tag(title string) []byte {
	buf := make([]byte, 128)
	copy(buf, "TAG")
	copy(buf[3:33], title)
	return buf
}

func TestBackfillMetadataOverridesTitleFromID3Tag(t *testing.T) {
	d, _ := newTestDownloader(t)

	path := filepath.Join(t.TempDir(), "track.mp3")
	content := append([]byte("fake mpeg frames"), id3v1Tag("Real Song Title")...)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	track := &model.Track{Title: "user-typed title", URL: path}
	d.backfillMetadata(track)

	require.Equal(t, "Real Song Title", track.Title)
}

func TestBackfillMetadataLeavesTitleUnchangedWhenFileUnreadable(t *testing.T) {
	d, _ := newTestDownloader(t)

	track := &model.Track{Title: "user-typed title", URL: filepath.Join(t.TempDir(), "missing.mp3")}
	d.backfillMetadata(track)

	require.Equal(t, "user-typed title", track.Title)
}
