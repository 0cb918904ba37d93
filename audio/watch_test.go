package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeWav(t, dir, "coin.wav", 44100, 441)

	c := NewCachingDecoder(NewDirDecoder(dir, DefaultFormat(), 4), 0)
	_, err := c.Decode("coin.wav")
	require.NoError(t, err)
	_, _, entries := c.Stats()
	require.Equal(t, 1, entries)

	w, err := NewWatcher(dir, c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	writeWav(t, dir, "coin.wav", 44100, 882)

	select {
	case locator := <-w.Changed():
		assert.Equal(t, "coin.wav", locator)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	require.Eventually(t, func() bool {
		_, _, n := c.Stats()
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)

	pcm, err := c.Decode("coin.wav")
	require.NoError(t, err)
	assert.Equal(t, 882*4, pcm.Len(), "decode after change should see the new file")
}

func TestWatcherMissingDir(t *testing.T) {
	c := NewCachingDecoder(&countingDecoder{}, 0)
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), c)
	require.Error(t, err)
}

func TestWatcherCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.wav"), nil, 0o644))

	w, err := NewWatcher(dir, NewCachingDecoder(&countingDecoder{}, 0))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
