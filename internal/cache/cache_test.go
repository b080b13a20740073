package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTitleStripsUnsafeCharsAndCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "My Song Title", SanitizeTitle(`My   <Song>  "Title"`))
}

func TestSanitizeTitlePreservesCase(t *testing.T) {
	require.Equal(t, "Shape of You", SanitizeTitle("Shape of You"))
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestFileCacheAdmitAndLookup(t *testing.T) {
	dir := t.TempDir()
	fc, err := New(filepath.Join(dir, "cache"), DefaultMaxBytes)
	require.NoError(t, err)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "source.mp3")
	writeFile(t, srcPath, 100)

	dstPath, err := fc.Admit(srcPath, "My Song")
	require.NoError(t, err)
	require.FileExists(t, dstPath)
	_, err = os.Stat(srcPath)
	require.True(t, os.IsNotExist(err))

	path, ok := fc.Lookup("My Song")
	require.True(t, ok)
	require.Equal(t, dstPath, path)
}

func TestFileCacheLookupMissReturnsFalse(t *testing.T) {
	fc, err := New(filepath.Join(t.TempDir(), "cache"), DefaultMaxBytes)
	require.NoError(t, err)

	_, ok := fc.Lookup("nonexistent")
	require.False(t, ok)
}

func TestFileCacheEvictsLeastRecentlyUsedOverBudget(t *testing.T) {
	dir := t.TempDir()
	fc, err := New(filepath.Join(dir, "cache"), 150)
	require.NoError(t, err)

	srcDir := t.TempDir()

	old := filepath.Join(srcDir, "old.mp3")
	writeFile(t, old, 100)
	_, err = fc.Admit(old, "Old Song")
	require.NoError(t, err)

	// ensure a distinguishable mtime/lastAccess ordering between admits
	time.Sleep(10 * time.Millisecond)

	newer := filepath.Join(srcDir, "new.mp3")
	writeFile(t, newer, 100)
	_, err = fc.Admit(newer, "New Song")
	require.NoError(t, err)

	_, oldStillCached := fc.Lookup("Old Song")
	require.False(t, oldStillCached)

	path, newStillCached := fc.Lookup("New Song")
	require.True(t, newStillCached)
	require.FileExists(t, path)
}

func TestFileCacheTotalBytes(t *testing.T) {
	dir := t.TempDir()
	fc, err := New(filepath.Join(dir, "cache"), DefaultMaxBytes)
	require.NoError(t, err)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.mp3")
	writeFile(t, src, 250)
	_, err = fc.Admit(src, "Song A")
	require.NoError(t, err)

	require.Equal(t, int64(250), fc.TotalBytes())
}

func TestFileCacheScanPicksUpExistingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeFile(t, filepath.Join(dir, "Preexisting Song.mp3"), 50)

	fc, err := New(dir, DefaultMaxBytes)
	require.NoError(t, err)

	_, ok := fc.Lookup("Preexisting Song")
	require.True(t, ok)
}
