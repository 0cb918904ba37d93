// Package music plays one long-form track through a device stream voice with
// transport controls: play from start, pause, resume, stop, seek and repeat.
package music

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/quicksound/audio"
	"github.com/lixenwraith/quicksound/constant"
	"github.com/lixenwraith/quicksound/log"
)

var ErrClosed = errors.New("music player closed")

// Opener opens a seekable stream in its source format
type Opener interface {
	Open(locator string) (beep.StreamSeekCloser, beep.Format, error)
}

// State is the transport state
type State uint8

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Option configures a Player
type Option func(*Player)

// WithResampleQuality sets the beep resampler quality used when the track
// rate differs from the device rate
func WithResampleQuality(q int) Option {
	return func(p *Player) {
		p.quality = q
	}
}

// WithRepeat starts the player with repeat on
func WithRepeat(repeat bool) Option {
	return func(p *Player) {
		p.repeat = repeat
	}
}

// Player streams a track to a device voice. The device pulls PCM from an
// internal reader that shares the player lock, so transport calls and
// rendering never interleave.
//
// Repeat is handled by rewinding at the end of the source rather than with
// beep.Loop, so it can be toggled while the track plays.
type Player struct {
	mu sync.Mutex

	locator string
	src     beep.StreamSeekCloser
	srcFmt  beep.Format
	ctrl    *beep.Ctrl // gates src, resampled to the device rate when needed
	format  audio.Format
	quality int
	samples [][2]float64

	voice  audio.Voice
	state  State
	repeat bool
	loops  int
	closed bool
}

// New opens locator and attaches a stream voice on dev. Playback starts with Play.
func New(dev audio.Device, op Opener, locator string, opts ...Option) (*Player, error) {
	src, bf, err := op.Open(locator)
	if err != nil {
		return nil, fmt.Errorf("open track %s: %w", locator, err)
	}

	p := &Player{
		locator: locator,
		src:     src,
		srcFmt:  bf,
		format:  dev.Format(),
		ctrl:    &beep.Ctrl{Paused: true},
		quality: constant.AudioResampleQuality,
		samples: make([][2]float64, constant.AudioRenderChunk),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.rebuildStream()

	voice, err := dev.NewStream(&pcmReader{p: p})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("attach track %s: %w", locator, err)
	}
	p.voice = voice

	log.Debug(log.CatMusic, "Track loaded",
		"locator", locator,
		"duration", p.Duration(),
		"sourceRate", int(bf.SampleRate),
		"deviceRate", p.format.SampleRate,
	)
	return p, nil
}

// rebuildStream drops resampler state after the source moved
func (p *Player) rebuildStream() {
	to := beep.SampleRate(p.format.SampleRate)
	if p.srcFmt.SampleRate == to {
		p.ctrl.Streamer = p.src
		return
	}
	p.ctrl.Streamer = beep.Resample(p.quality, p.srcFmt.SampleRate, to, p.src)
}

func (p *Player) seekLocked(frame int) error {
	if err := p.src.Seek(frame); err != nil {
		return fmt.Errorf("seek %s: %w", p.locator, err)
	}
	p.rebuildStream()
	return nil
}

// Play starts the track from the beginning, also when it is already playing
func (p *Player) Play() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if err := p.seekLocked(0); err != nil {
		p.mu.Unlock()
		return err
	}
	p.state = StatePlaying
	p.ctrl.Paused = false
	p.loops = 0
	p.mu.Unlock()

	p.voice.Play()
	log.Debug(log.CatMusic, "Play", "locator", p.locator)
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.state != StatePlaying {
		p.mu.Unlock()
		return nil
	}
	p.state = StatePaused
	p.ctrl.Paused = true
	p.mu.Unlock()

	p.voice.Pause()
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.state != StatePaused {
		p.mu.Unlock()
		return nil
	}
	p.state = StatePlaying
	p.ctrl.Paused = false
	p.mu.Unlock()

	p.voice.Play()
	return nil
}

// TogglePause pauses a playing track or resumes a paused one and reports
// whether the player is now paused. A stopped player is left alone.
func (p *Player) TogglePause() (bool, error) {
	switch p.State() {
	case StatePlaying:
		return true, p.Pause()
	case StatePaused:
		return false, p.Resume()
	default:
		if p.Closed() {
			return false, ErrClosed
		}
		return false, nil
	}
}

// Stop halts playback and rewinds to the start
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.state = StateStopped
	p.ctrl.Paused = true
	err := p.seekLocked(0)
	p.mu.Unlock()

	p.voice.Pause()
	return err
}

// Seek moves to d, clamped at zero. Past the end the track wraps when repeat
// is on and otherwise finishes.
func (p *Player) Seek(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	total := p.src.Len()
	frame := p.srcFmt.SampleRate.N(d)
	if frame < 0 {
		frame = 0
	}
	if frame >= total {
		if p.repeat && total > 0 {
			p.loops += frame / total
			frame %= total
		} else {
			p.finishLocked()
			return nil
		}
	}
	return p.seekLocked(frame)
}

// Forward seeks d ahead of the current position
func (p *Player) Forward(d time.Duration) error {
	return p.Seek(p.Position() + d)
}

// finishLocked ends playback at the end of the track; the voice keeps
// pulling silence until paused by Stop or Pause
func (p *Player) finishLocked() {
	p.state = StateStopped
	p.ctrl.Paused = true
	if err := p.seekLocked(0); err != nil {
		log.Warn(log.CatMusic, "Rewind after finish failed", "locator", p.locator, "error", err)
	}
	log.Debug(log.CatMusic, "Track finished", "locator", p.locator, "loops", p.loops)
}

func (p *Player) SetRepeat(repeat bool) {
	p.mu.Lock()
	p.repeat = repeat
	p.mu.Unlock()
}

// ToggleRepeat flips repeat and returns the new value
func (p *Player) ToggleRepeat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = !p.repeat
	return p.repeat
}

func (p *Player) Repeat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeat
}

// Loops counts completed passes since the last Play
func (p *Player) Loops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loops
}

// Position is measured on the source stream
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.srcFmt.SampleRate.D(p.src.Position())
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.srcFmt.SampleRate.D(p.src.Len())
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Locator() string { return p.locator }

func (p *Player) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close releases the voice and the source stream
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.state = StateStopped
	p.ctrl.Paused = true
	p.mu.Unlock()

	p.voice.Pause()
	verr := p.voice.Close()

	p.mu.Lock()
	serr := p.src.Close()
	p.mu.Unlock()

	return errors.Join(verr, serr)
}

// render fills b with whole frames of device PCM. The paused ctrl yields
// silence while stopped or paused and after the end of the track.
func (p *Player) render(b []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	bpf := p.format.BytesPerFrame()
	frames := len(b) / bpf
	size := frames * bpf

	filled := 0
	for !p.closed && filled < frames {
		chunk := p.samples[:min(frames-filled, len(p.samples))]
		n, ok := p.ctrl.Stream(chunk)
		audio.EncodeSamples(b[filled*bpf:size], chunk[:n], p.format)
		filled += n
		if ok && n > 0 {
			continue
		}
		if p.ctrl.Paused {
			break
		}

		if err := p.src.Err(); err != nil {
			log.Warn(log.CatMusic, "Track stream error", "locator", p.locator, "error", err)
			p.finishLocked()
			continue
		}
		if !p.repeat || p.src.Len() == 0 {
			p.finishLocked()
			continue
		}
		p.loops++
		if err := p.seekLocked(0); err != nil {
			log.Warn(log.CatMusic, "Repeat rewind failed", "locator", p.locator, "error", err)
			p.finishLocked()
		}
	}

	clear(b[filled*bpf : size])
	return size
}

// pcmReader is the io.Reader a device stream voice pulls from
type pcmReader struct {
	p *Player
}

func (r *pcmReader) Read(b []byte) (int, error) {
	if n := r.p.render(b); n > 0 {
		return n, nil
	}
	if len(b) == 0 {
		return 0, nil
	}
	return 0, io.ErrShortBuffer
}
