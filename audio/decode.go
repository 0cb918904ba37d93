package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// SynthScheme prefixes locators that name a built-in generated sound
const SynthScheme = "synth:"

// Decoder turns an asset locator into device-format PCM
type Decoder interface {
	Decode(locator string) (PCM, error)
}

// FileDecoder resolves locators against a file system and decodes them with
// the beep codec matching the extension, resampled to the device rate
type FileDecoder struct {
	fsys    fs.FS
	format  Format
	quality int
}

// NewFileDecoder decodes assets from fsys into format
func NewFileDecoder(fsys fs.FS, format Format, quality int) *FileDecoder {
	return &FileDecoder{fsys: fsys, format: format, quality: quality}
}

// NewDirDecoder decodes assets rooted at dir
func NewDirDecoder(dir string, format Format, quality int) *FileDecoder {
	return NewFileDecoder(os.DirFS(dir), format, quality)
}

// Format returns the output format
func (d *FileDecoder) Format() Format {
	return d.format
}

// Decode renders the whole asset into memory
func (d *FileDecoder) Decode(locator string) (PCM, error) {
	if name, ok := strings.CutPrefix(locator, SynthScheme); ok {
		return Synthesize(name, d.format)
	}

	s, bf, err := d.openFile(locator)
	if err != nil {
		return PCM{}, err
	}
	defer s.Close()

	pcm, err := renderStreamer(d.resample(s, bf), d.format)
	if err != nil {
		return PCM{}, fmt.Errorf("decode %s: %w", locator, err)
	}
	return pcm, nil
}

// Open returns a seekable stream for long-form playback. The stream stays in
// its source format and callers resample it themselves.
func (d *FileDecoder) Open(locator string) (beep.StreamSeekCloser, beep.Format, error) {
	if name, ok := strings.CutPrefix(locator, SynthScheme); ok {
		buf, err := synth{rate: d.format.SampleRate}.generate(name)
		if err != nil {
			return nil, beep.Format{}, err
		}
		return &floatStreamer{buf: buf}, BeepFormat(d.format), nil
	}
	return d.openFile(locator)
}

func (d *FileDecoder) resample(s beep.Streamer, from beep.Format) beep.Streamer {
	to := beep.SampleRate(d.format.SampleRate)
	if from.SampleRate == to {
		return s
	}
	return beep.Resample(d.quality, from.SampleRate, to, s)
}

func (d *FileDecoder) openFile(locator string) (beep.StreamSeekCloser, beep.Format, error) {
	decode, err := codecFor(locator)
	if err != nil {
		return nil, beep.Format{}, err
	}

	f, err := d.fsys.Open(locator)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open %s: %w", locator, err)
	}

	s, bf, err := decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", locator, err)
	}
	return &fileStream{StreamSeekCloser: s, file: f}, bf, nil
}

type codec func(f fs.File) (beep.StreamSeekCloser, beep.Format, error)

// codecFor picks a decoder by file extension
func codecFor(locator string) (codec, error) {
	switch strings.ToLower(path.Ext(locator)) {
	case ".wav":
		return func(f fs.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }, nil
	case ".mp3":
		return func(f fs.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }, nil
	case ".flac":
		return func(f fs.File) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(f) }, nil
	case ".ogg":
		return func(f fs.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, locator)
	}
}

// fileStream closes the backing file together with the decoder
type fileStream struct {
	beep.StreamSeekCloser
	file fs.File
}

func (s *fileStream) Close() error {
	err := s.StreamSeekCloser.Close()
	if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, fs.ErrClosed) && err == nil {
		err = ferr
	}
	return err
}

// floatStreamer plays a mono synth buffer as a seekable stereo stream
type floatStreamer struct {
	buf floatBuffer
	pos int
}

func (s *floatStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.buf) {
		return 0, false
	}
	for n < len(samples) && s.pos < len(s.buf) {
		v := limit(s.buf[s.pos])
		samples[n] = [2]float64{v, v}
		n++
		s.pos++
	}
	return n, true
}

func (s *floatStreamer) Err() error    { return nil }
func (s *floatStreamer) Len() int      { return len(s.buf) }
func (s *floatStreamer) Position() int { return s.pos }
func (s *floatStreamer) Close() error  { return nil }

func (s *floatStreamer) Seek(p int) error {
	if p < 0 || p > len(s.buf) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, len(s.buf))
	}
	s.pos = p
	return nil
}
