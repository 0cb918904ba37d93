package audio

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/quicksound/constant"
)

// PCM is a decoded, ready-to-play buffer in a device Format.
// Data is shared read-only between voices.
type PCM struct {
	Format Format
	Data   []byte
}

// Len returns the buffer size in bytes
func (p PCM) Len() int {
	return len(p.Data)
}

// Duration returns the playback time
func (p PCM) Duration() time.Duration {
	return p.Format.Duration(len(p.Data))
}

// Reader returns an independent seekable view of the data
func (p PCM) Reader() *bytes.Reader {
	return bytes.NewReader(p.Data)
}

// Silence returns frames of zeroed PCM
func Silence(f Format, frames int) PCM {
	if frames < 0 {
		frames = 0
	}
	return PCM{Format: f, Data: make([]byte, frames*f.BytesPerFrame())}
}

// floatToPCM converts float64 mono to interleaved int16 LE bytes.
// Applies soft limiting before hard clip.
func floatToPCM(in floatBuffer, f Format) PCM {
	bpf := f.BytesPerFrame()
	out := make([]byte, len(in)*bpf)
	for i, v := range in {
		i16 := int16(limit(v) * 32767)
		idx := i * bpf
		for c := 0; c < f.Channels; c++ {
			binary.LittleEndian.PutUint16(out[idx+c*2:], uint16(i16))
		}
	}
	return PCM{Format: f, Data: out}
}

// limit applies a tanh-style soft knee above 0.8 then clips to [-1, 1]
func limit(v float64) float64 {
	if v > 0.8 {
		v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
	} else if v < -0.8 {
		v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
	}

	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return v
}

// BeepFormat maps a device format to the beep equivalent
func BeepFormat(f Format) beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(f.SampleRate),
		NumChannels: f.Channels,
		Precision:   constant.AudioBitDepth / 8,
	}
}

// renderStreamer drains a finite streamer into PCM
func renderStreamer(s beep.Streamer, f Format) (PCM, error) {
	bf := BeepFormat(f)
	var buf bytes.Buffer
	samples := make([][2]float64, constant.AudioRenderChunk)
	frame := make([]byte, bf.Width())

	for {
		n, ok := s.Stream(samples)
		for _, smp := range samples[:n] {
			bf.EncodeSigned(frame, smp)
			buf.Write(frame)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return PCM{}, err
	}
	return PCM{Format: f, Data: buf.Bytes()}, nil
}

// EncodeSamples writes beep samples into p as signed PCM, returning bytes written
func EncodeSamples(p []byte, samples [][2]float64, f Format) int {
	bf := BeepFormat(f)
	w := bf.Width()
	n := 0
	for _, smp := range samples {
		if n+w > len(p) {
			break
		}
		n += bf.EncodeSigned(p[n:], smp)
	}
	return n
}
