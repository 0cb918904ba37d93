//go:build !headless

package audio

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

var (
	otoOnce   sync.Once
	otoDevice *OtoDevice
	otoErr    error
)

// OtoDevice plays voices through the single process-wide oto context
type OtoDevice struct {
	ctx    *oto.Context
	format Format
	volume float64
	closed atomic.Bool
}

// openOto creates the oto context once; oto refuses a second context per process
func openOto(cfg *Config) (Device, error) {
	otoOnce.Do(func() {
		format := cfg.Format()
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.BufferSize,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("%w: %v", ErrNoAudioBackend, err)
			return
		}
		<-ready

		otoDevice = &OtoDevice{ctx: ctx, format: format, volume: cfg.MasterVolume}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoDevice.closed.CompareAndSwap(true, false) {
		if err := otoDevice.ctx.Resume(); err != nil {
			return nil, fmt.Errorf("resume audio context: %w", err)
		}
	}
	return otoDevice, nil
}

func (d *OtoDevice) Format() Format { return d.format }

func (d *OtoDevice) Silent() bool { return false }

func (d *OtoDevice) NewVoice(r io.ReadSeeker) (Voice, error) {
	return d.newPlayer(r)
}

func (d *OtoDevice) NewStream(r io.Reader) (Voice, error) {
	return d.newPlayer(r)
}

func (d *OtoDevice) newPlayer(r io.Reader) (Voice, error) {
	if d.closed.Load() {
		return nil, ErrDeviceClosed
	}
	if err := d.ctx.Err(); err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}
	p := d.ctx.NewPlayer(r)
	p.SetVolume(d.volume)
	return &otoVoice{player: p}, nil
}

// Close suspends the context; a later OpenDevice resumes it
func (d *OtoDevice) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrDeviceClosed
	}
	return d.ctx.Suspend()
}

// otoVoice wraps an oto player; a dropped player is reclaimed by oto's finalizer
type otoVoice struct {
	mu     sync.Mutex
	player *oto.Player
}

func (v *otoVoice) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.player != nil {
		v.player.Play()
	}
}

func (v *otoVoice) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.player != nil {
		v.player.Pause()
	}
}

func (v *otoVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.player != nil && v.player.IsPlaying()
}

func (v *otoVoice) Rewind() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.player == nil {
		return ErrVoiceClosed
	}
	if _, err := v.player.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind voice: %w", err)
	}
	return nil
}

func (v *otoVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.player == nil {
		return ErrVoiceClosed
	}
	v.player.Pause()
	err := v.player.Err()
	v.player = nil
	return err
}
