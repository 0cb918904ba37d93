package clip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/quicksound/audio"
)

func newTestWarmer(timeout time.Duration) *warmer {
	return &warmer{pollInterval: time.Millisecond, timeout: timeout}
}

func withWarmer(w *warmer) Option {
	return func(o *options) {
		o.warmer = w
	}
}

func TestWarmerRunsOnce(t *testing.T) {
	w := newTestWarmer(time.Second)
	dev := audio.NewHeadlessDevice(audio.DefaultFormat())

	assert.False(t, w.done.Load())
	w.run(dev)
	w.run(dev)
	w.run(dev)

	assert.True(t, w.done.Load())
	assert.Equal(t, 1, dev.Voices())

	// One frame at 44.1kHz ends almost immediately, then the voice is released
	require.Eventually(t, func() bool {
		return dev.OpenVoices() == 0
	}, time.Second, time.Millisecond)
}

func TestWarmerReleasesAfterTimeout(t *testing.T) {
	w := newTestWarmer(20 * time.Millisecond)

	// Frozen clock keeps the voice playing until the timeout
	dev := audio.NewHeadlessDevice(audio.DefaultFormat(), audio.WithClock(audio.NewManualClock()))
	w.run(dev)

	assert.Equal(t, 1, dev.OpenVoices())
	require.Eventually(t, func() bool {
		return dev.OpenVoices() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWarmerClosedDeviceIsNotFatal(t *testing.T) {
	w := newTestWarmer(time.Second)
	dev := audio.NewHeadlessDevice(audio.DefaultFormat())
	require.NoError(t, dev.Close())

	require.NotPanics(t, func() { w.run(dev) })
	assert.True(t, w.done.Load())
	assert.Equal(t, 0, dev.Voices())
}

func TestNewRunsWarmupOncePerWarmer(t *testing.T) {
	w := newTestWarmer(time.Second)
	dev := audio.NewHeadlessDevice(testFormat)

	_, err := New(dev, newStubDecoder(), testLocator, 2, withWarmer(w))
	require.NoError(t, err)
	_, err = New(dev, newStubDecoder(), testLocator, 2, withWarmer(w))
	require.NoError(t, err)

	assert.Equal(t, 5, dev.Voices(), "four channels plus a single warm-up voice")
}

func TestGlobalWarmup(t *testing.T) {
	Warmup(audio.NewHeadlessDevice(audio.DefaultFormat()))
	assert.True(t, Warmed())
}
