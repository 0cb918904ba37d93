package audio

import (
	"errors"
	"io"
	"time"

	"github.com/lixenwraith/quicksound/constant"
)

// Format describes the interleaved signed 16-bit little-endian PCM a device plays
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is 44.1kHz stereo
func DefaultFormat() Format {
	return Format{SampleRate: constant.AudioSampleRate, Channels: constant.AudioChannels}
}

// BytesPerFrame returns the size of one sample across all channels
func (f Format) BytesPerFrame() int {
	return f.Channels * (constant.AudioBitDepth / 8)
}

// Duration returns the playback time of n bytes
func (f Format) Duration(n int) time.Duration {
	bpf := f.BytesPerFrame()
	if bpf == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := int64(n / bpf)
	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

// Frames converts a duration to a frame count
func (f Format) Frames(d time.Duration) int {
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// Device is the process-wide audio output
type Device interface {
	// Format is the PCM layout voices must be fed
	Format() Format
	// NewVoice creates an independently playable voice over a seekable PCM source
	NewVoice(r io.ReadSeeker) (Voice, error)
	// NewStream creates a voice pulling PCM from an unbounded reader
	NewStream(r io.Reader) (Voice, error)
	// Silent reports whether output is discarded (no backend)
	Silent() bool
	Close() error
}

// Voice is one playable buffer on a device
type Voice interface {
	Play()
	Pause()
	IsPlaying() bool
	// Rewind moves playback to the start without changing play state
	Rewind() error
	// Close releases the voice, later calls return ErrVoiceClosed
	Close() error
}

// Sentinel errors
var (
	ErrNoAudioBackend    = errors.New("no compatible audio backend found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrVoiceClosed       = errors.New("voice closed")
	ErrDeviceClosed      = errors.New("audio device closed")
)
