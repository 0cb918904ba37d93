package audio

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/quicksound/constant"
)

// Clock supplies the time base headless voices play against
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when advanced, for deterministic playback in tests
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts at an arbitrary fixed instant
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// HeadlessDevice discards output but keeps voice timing, so a voice reports
// playing for exactly the duration of its PCM. Stream voices read and discard
// their source at the device rate. Used as the silent fallback when no backend
// is available and as the test double.
//
// On the wall clock a background pump feeds stream voices. With a custom clock
// there is no pump: streams advance when Pump is called or the voice is queried.
type HeadlessDevice struct {
	format Format
	clock  Clock
	closed atomic.Bool

	created atomic.Int64
	open    atomic.Int64

	mu       sync.Mutex
	streams  map[*headlessVoice]struct{}
	pumpOnce sync.Once
	stop     chan struct{}
}

// HeadlessOption configures a HeadlessDevice
type HeadlessOption func(*HeadlessDevice)

// WithClock replaces the wall clock
func WithClock(c Clock) HeadlessOption {
	return func(d *HeadlessDevice) {
		d.clock = c
	}
}

// NewHeadlessDevice creates a silent device in format f
func NewHeadlessDevice(f Format, opts ...HeadlessOption) *HeadlessDevice {
	d := &HeadlessDevice{
		format:  f,
		clock:   systemClock{},
		streams: make(map[*headlessVoice]struct{}),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *HeadlessDevice) Format() Format { return d.format }

func (d *HeadlessDevice) Silent() bool { return true }

// NewVoice measures r and plays it for its duration
func (d *HeadlessDevice) NewVoice(r io.ReadSeeker) (Voice, error) {
	if d.closed.Load() {
		return nil, ErrDeviceClosed
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure voice source: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind voice source: %w", err)
	}
	return d.newVoice(d.format.Duration(int(size)), false), nil
}

// NewStream returns a voice that plays until paused, consuming r at the
// device rate while playing
func (d *HeadlessDevice) NewStream(r io.Reader) (Voice, error) {
	if d.closed.Load() {
		return nil, ErrDeviceClosed
	}
	v := d.newVoice(0, true)
	v.src = r

	d.mu.Lock()
	d.streams[v] = struct{}{}
	d.mu.Unlock()

	if _, ok := d.clock.(systemClock); ok {
		d.pumpOnce.Do(func() { go d.pumpLoop() })
	}
	return v, nil
}

func (d *HeadlessDevice) newVoice(length time.Duration, stream bool) *headlessVoice {
	d.created.Add(1)
	d.open.Add(1)
	return &headlessVoice{dev: d, clock: d.clock, length: length, stream: stream}
}

// Pump feeds every playing stream voice up to the current clock time
func (d *HeadlessDevice) Pump() {
	d.mu.Lock()
	voices := make([]*headlessVoice, 0, len(d.streams))
	for v := range d.streams {
		voices = append(voices, v)
	}
	d.mu.Unlock()

	for _, v := range voices {
		v.mu.Lock()
		v.drain()
		v.mu.Unlock()
	}
}

func (d *HeadlessDevice) pumpLoop() {
	ticker := time.NewTicker(constant.HeadlessPumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.Pump()
		}
	}
}

func (d *HeadlessDevice) forget(v *headlessVoice) {
	d.mu.Lock()
	delete(d.streams, v)
	d.mu.Unlock()
}

func (d *HeadlessDevice) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrDeviceClosed
	}
	close(d.stop)
	return nil
}

// Voices returns how many voices were ever created
func (d *HeadlessDevice) Voices() int {
	return int(d.created.Load())
}

// OpenVoices returns voices created and not yet closed
func (d *HeadlessDevice) OpenVoices() int {
	return int(d.open.Load())
}

// headlessVoice tracks play position against the device clock
type headlessVoice struct {
	mu      sync.Mutex
	dev     *HeadlessDevice
	clock   Clock
	length  time.Duration
	stream  bool
	pos     time.Duration // Position when last paused or rewound
	since   time.Time     // When playback resumed from pos
	playing bool
	closed  bool

	// Stream voices only
	src     io.Reader
	fed     int // Frames read from src since the last rewind
	scratch []byte
}

func (v *headlessVoice) position() time.Duration {
	if !v.playing {
		return v.pos
	}
	p := v.pos + v.clock.Now().Sub(v.since)
	if !v.stream && p > v.length {
		p = v.length
	}
	return p
}

// drain reads and discards src up to the current position
func (v *headlessVoice) drain() {
	if v.src == nil || v.closed {
		return
	}
	f := v.dev.format
	bpf := f.BytesPerFrame()
	want := f.Frames(v.position()) - v.fed
	if want <= 0 || bpf == 0 {
		return
	}
	if v.scratch == nil {
		v.scratch = make([]byte, constant.AudioRenderChunk*bpf)
	}
	for want > 0 {
		n := min(want, len(v.scratch)/bpf)
		if _, err := io.ReadFull(v.src, v.scratch[:n*bpf]); err != nil {
			v.src = nil
			return
		}
		v.fed += n
		want -= n
	}
}

// settle stops a bounded voice that has run past its end
func (v *headlessVoice) settle() {
	v.drain()
	if v.playing && !v.stream && v.position() >= v.length {
		v.pos = v.length
		v.playing = false
	}
}

func (v *headlessVoice) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.settle()
	if v.playing || (!v.stream && v.pos >= v.length) {
		return
	}
	v.playing = true
	v.since = v.clock.Now()
}

func (v *headlessVoice) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || !v.playing {
		return
	}
	v.drain()
	v.pos = v.position()
	v.playing = false
}

func (v *headlessVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return false
	}
	v.settle()
	return v.playing
}

func (v *headlessVoice) Rewind() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVoiceClosed
	}
	v.settle()
	v.pos = 0
	v.fed = 0
	if v.playing {
		v.since = v.clock.Now()
	}
	return nil
}

func (v *headlessVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVoiceClosed
	}
	v.closed = true
	v.playing = false
	v.src = nil
	v.dev.open.Add(-1)
	if v.stream {
		v.dev.forget(v)
	}
	return nil
}
