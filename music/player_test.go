package music

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/quicksound/audio"
)

// 1kHz stereo: one frame per millisecond, four bytes per frame
var testFormat = audio.Format{SampleRate: 1000, Channels: 2}

const trackFrames = 2000

// constStreamer is a seekable track of constant 0.5 samples
type constStreamer struct {
	n, pos int
	closed bool
}

func (s *constStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	i := 0
	for ; i < len(samples) && s.pos < s.n; i++ {
		samples[i] = [2]float64{0.5, 0.5}
		s.pos++
	}
	return i, true
}

func (s *constStreamer) Err() error    { return nil }
func (s *constStreamer) Len() int      { return s.n }
func (s *constStreamer) Position() int { return s.pos }

func (s *constStreamer) Seek(p int) error {
	if p < 0 || p > s.n {
		return errors.New("out of range")
	}
	s.pos = p
	return nil
}

func (s *constStreamer) Close() error {
	s.closed = true
	return nil
}

type stubOpener struct {
	track *constStreamer
	rate  int
	err   error
}

func (o *stubOpener) Open(string) (beep.StreamSeekCloser, beep.Format, error) {
	if o.err != nil {
		return nil, beep.Format{}, o.err
	}
	return o.track, beep.Format{SampleRate: beep.SampleRate(o.rate), NumChannels: 2, Precision: 2}, nil
}

// captureDevice keeps the stream reader so tests can pull PCM like a backend
type captureDevice struct {
	*audio.HeadlessDevice
	stream io.Reader
}

func (d *captureDevice) NewStream(r io.Reader) (audio.Voice, error) {
	d.stream = r
	return d.HeadlessDevice.NewStream(r)
}

// newCaptureDevice runs on a manual clock so the device never reads the
// stream behind the test's back
func newCaptureDevice(f audio.Format) *captureDevice {
	return &captureDevice{HeadlessDevice: audio.NewHeadlessDevice(f, audio.WithClock(audio.NewManualClock()))}
}

func newTestPlayer(t *testing.T, opts ...Option) (*Player, *captureDevice, *constStreamer) {
	t.Helper()
	track := &constStreamer{n: trackFrames}
	dev := newCaptureDevice(testFormat)

	p, err := New(dev, &stubOpener{track: track, rate: testFormat.SampleRate}, "tune.ogg", opts...)
	require.NoError(t, err)
	return p, dev, track
}

// pull reads frames of PCM from the device stream
func pull(t *testing.T, dev *captureDevice, frames int) []byte {
	t.Helper()
	buf := make([]byte, frames*testFormat.BytesPerFrame())
	n, err := io.ReadFull(dev.stream, buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	return buf
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestPlayerTransport(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 2*time.Second, p.Duration())

	require.NoError(t, p.Play())
	assert.Equal(t, StatePlaying, p.State())

	require.NoError(t, p.Pause())
	assert.Equal(t, StatePaused, p.State())

	require.NoError(t, p.Resume())
	assert.Equal(t, StatePlaying, p.State())

	paused, err := p.TogglePause()
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Equal(t, StatePaused, p.State())

	paused, err = p.TogglePause()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, StatePlaying, p.State())

	require.NoError(t, p.Stop())
	assert.Equal(t, StateStopped, p.State())

	paused, err = p.TogglePause()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, StateStopped, p.State(), "toggle does not start a stopped track")
}

func TestPlayerRendersWhilePlaying(t *testing.T) {
	p, dev, _ := newTestPlayer(t)

	assert.True(t, allZero(pull(t, dev, 100)), "stopped player renders silence")
	assert.Equal(t, time.Duration(0), p.Position())

	require.NoError(t, p.Play())
	buf := pull(t, dev, 100)
	assert.Equal(t, 100*time.Millisecond, p.Position())

	want := int16(16383) // 0.5 full scale
	got := int16(binary.LittleEndian.Uint16(buf[0:]))
	assert.InDelta(t, want, got, 1)

	require.NoError(t, p.Pause())
	assert.True(t, allZero(pull(t, dev, 100)), "paused player renders silence")
	assert.Equal(t, 100*time.Millisecond, p.Position())
}

func TestPlayerFinishesWithoutRepeat(t *testing.T) {
	p, dev, _ := newTestPlayer(t)
	require.NoError(t, p.Play())

	buf := pull(t, dev, trackFrames+500)
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, time.Duration(0), p.Position())
	assert.True(t, allZero(buf[trackFrames*4:]), "tail after the end is silence")
	assert.Equal(t, 0, p.Loops())
}

func TestPlayerRepeatLoops(t *testing.T) {
	p, dev, _ := newTestPlayer(t, WithRepeat(true))
	require.True(t, p.Repeat())
	require.NoError(t, p.Play())

	buf := pull(t, dev, trackFrames+500)
	assert.Equal(t, StatePlaying, p.State())
	assert.Equal(t, 500*time.Millisecond, p.Position())
	assert.Equal(t, 1, p.Loops())
	assert.False(t, allZero(buf[trackFrames*4:]), "repeat continues without a gap")
}

func TestPlayerPlayRestartsFromBeginning(t *testing.T) {
	p, dev, _ := newTestPlayer(t)
	require.NoError(t, p.Play())
	pull(t, dev, 700)
	require.Equal(t, 700*time.Millisecond, p.Position())

	require.NoError(t, p.Play())
	assert.Equal(t, time.Duration(0), p.Position())
	assert.Equal(t, StatePlaying, p.State())
}

func TestPlayerSeek(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	require.NoError(t, p.Play())

	require.NoError(t, p.Seek(-time.Second))
	assert.Equal(t, time.Duration(0), p.Position())

	require.NoError(t, p.Seek(1500*time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, p.Position())

	require.NoError(t, p.Forward(200*time.Millisecond))
	assert.Equal(t, 1700*time.Millisecond, p.Position())

	// Past the end without repeat finishes the track
	require.NoError(t, p.Forward(10*time.Second))
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, time.Duration(0), p.Position())
}

func TestPlayerSeekWrapsWithRepeat(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	assert.True(t, p.ToggleRepeat())
	require.NoError(t, p.Play())

	require.NoError(t, p.Seek(1500*time.Millisecond))
	require.NoError(t, p.Forward(time.Second))
	assert.Equal(t, 500*time.Millisecond, p.Position())
	assert.Equal(t, StatePlaying, p.State())
	assert.Equal(t, 1, p.Loops())

	assert.False(t, p.ToggleRepeat())
	p.SetRepeat(true)
	assert.True(t, p.Repeat())
}

func TestPlayerStopRewinds(t *testing.T) {
	p, dev, _ := newTestPlayer(t)
	require.NoError(t, p.Play())
	pull(t, dev, 300)

	require.NoError(t, p.Stop())
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, time.Duration(0), p.Position())
	assert.True(t, allZero(pull(t, dev, 50)))
}

func TestPlayerClose(t *testing.T) {
	p, dev, track := newTestPlayer(t)
	require.NoError(t, p.Play())

	require.NoError(t, p.Close())
	assert.True(t, track.closed)
	assert.True(t, p.Closed())
	assert.Equal(t, 0, dev.OpenVoices())

	assert.ErrorIs(t, p.Play(), ErrClosed)
	assert.ErrorIs(t, p.Pause(), ErrClosed)
	assert.ErrorIs(t, p.Resume(), ErrClosed)
	assert.ErrorIs(t, p.Stop(), ErrClosed)
	assert.ErrorIs(t, p.Seek(0), ErrClosed)
	assert.ErrorIs(t, p.Close(), ErrClosed)
	_, err := p.TogglePause()
	assert.ErrorIs(t, err, ErrClosed)

	assert.True(t, allZero(pull(t, dev, 10)))
}

func TestPlayerOpenError(t *testing.T) {
	dev := newCaptureDevice(testFormat)
	_, err := New(dev, &stubOpener{err: audio.ErrUnsupportedFormat}, "tune.xm")
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "tune.xm")
}

func TestPlayerClosedDevice(t *testing.T) {
	track := &constStreamer{n: trackFrames}
	dev := newCaptureDevice(testFormat)
	require.NoError(t, dev.Close())

	_, err := New(dev, &stubOpener{track: track, rate: 1000}, "tune.ogg")
	assert.ErrorIs(t, err, audio.ErrDeviceClosed)
	assert.True(t, track.closed, "source closed when the voice cannot be attached")
}

func TestPlayerResamplesToDeviceRate(t *testing.T) {
	track := &constStreamer{n: trackFrames}
	dev := newCaptureDevice(audio.Format{SampleRate: 2000, Channels: 2})

	p, err := New(dev, &stubOpener{track: track, rate: 1000}, "tune.ogg", WithResampleQuality(2))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, p.Duration(), "duration is measured on the source")

	require.NoError(t, p.Play())
	buf := make([]byte, 400*4)
	_, err = io.ReadFull(dev.stream, buf)
	require.NoError(t, err)

	// The resampler reads ahead in blocks, so only check the source moved
	assert.Greater(t, p.Position(), time.Duration(0))
	assert.False(t, allZero(buf))
}

func TestPlayerSynthTrack(t *testing.T) {
	dev := newCaptureDevice(audio.DefaultFormat())
	dec := audio.NewFileDecoder(fstest.MapFS{}, audio.DefaultFormat(), 4)

	p, err := New(dev, dec, audio.SynthScheme+"tune")
	require.NoError(t, err)
	assert.Greater(t, p.Duration(), time.Second)

	require.NoError(t, p.Play())
	buf := make([]byte, 4410*4)
	_, err = io.ReadFull(dev.stream, buf)
	require.NoError(t, err)
	assert.False(t, allZero(buf))
	assert.Equal(t, 100*time.Millisecond, p.Position())
}

// newHeadlessPlayer plays through the silent device, which pulls the stream
// itself as its clock advances
func newHeadlessPlayer(t *testing.T, opts ...Option) (*Player, *audio.HeadlessDevice, *audio.ManualClock) {
	t.Helper()
	clock := audio.NewManualClock()
	dev := audio.NewHeadlessDevice(testFormat, audio.WithClock(clock))

	p, err := New(dev, &stubOpener{track: &constStreamer{n: trackFrames}, rate: testFormat.SampleRate}, "tune.ogg", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, dev, clock
}

func TestPlayerAdvancesOnHeadlessDevice(t *testing.T) {
	p, dev, clock := newHeadlessPlayer(t)
	require.NoError(t, p.Play())

	clock.Advance(500 * time.Millisecond)
	dev.Pump()
	assert.Equal(t, 500*time.Millisecond, p.Position())
	assert.Equal(t, StatePlaying, p.State())

	require.NoError(t, p.Pause())
	clock.Advance(time.Second)
	dev.Pump()
	assert.Equal(t, 500*time.Millisecond, p.Position(), "paused track holds its position")

	require.NoError(t, p.Resume())
	clock.Advance(2 * time.Second)
	dev.Pump()
	assert.Equal(t, StateStopped, p.State(), "track finishes on its own")
	assert.Equal(t, time.Duration(0), p.Position())
}

func TestPlayerRepeatsOnHeadlessDevice(t *testing.T) {
	p, dev, clock := newHeadlessPlayer(t, WithRepeat(true))
	require.NoError(t, p.Play())

	clock.Advance(2500 * time.Millisecond)
	dev.Pump()
	assert.Equal(t, StatePlaying, p.State())
	assert.Equal(t, 500*time.Millisecond, p.Position())
	assert.Equal(t, 1, p.Loops())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "paused", StatePaused.String())
}
