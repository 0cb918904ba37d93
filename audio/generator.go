package audio

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lixenwraith/quicksound/constant"
)

// Waveform types
const (
	waveSine = iota
	waveSquare
	waveSaw
	waveNoise
)

// floatBuffer is mono float64 samples at unity gain
type floatBuffer []float64

// synth renders waveforms at a fixed sample rate
type synth struct {
	rate int
}

// oscillator generates raw waveform samples
func (s synth) oscillator(waveType int, freq float64, samples int) floatBuffer {
	buf := make(floatBuffer, samples)
	phase := 0.0
	phaseInc := freq / float64(s.rate)

	for i := 0; i < samples; i++ {
		switch waveType {
		case waveSine:
			buf[i] = math.Sin(2 * math.Pi * phase)
		case waveSquare:
			if phase < 0.5 {
				buf[i] = 1.0
			} else {
				buf[i] = -1.0
			}
		case waveSaw:
			buf[i] = 2.0 * (phase - 0.5)
		case waveNoise:
			buf[i] = rand.Float64()*2 - 1
		}

		phase += phaseInc
		if phase >= 1.0 {
			phase -= 1.0
		}
	}
	return buf
}

// applyEnvelope applies attack/release envelope in place
func (s synth) applyEnvelope(buf floatBuffer, attack, release time.Duration) {
	total := len(buf)
	attackSamples := s.samples(attack)
	releaseSamples := s.samples(release)

	releaseStart := total - releaseSamples
	if releaseStart < attackSamples {
		releaseStart = attackSamples
	}

	for i := 0; i < total; i++ {
		vol := 1.0
		if i < attackSamples && attackSamples > 0 {
			vol = float64(i) / float64(attackSamples)
		} else if i >= releaseStart && releaseSamples > 0 {
			vol = float64(total-i) / float64(releaseSamples)
		}
		buf[i] *= vol
	}
}

// samples converts duration to sample count
func (s synth) samples(d time.Duration) int {
	return int(d.Seconds() * float64(s.rate))
}

// mixFloatBuffers adds b into a (in place), extending a if needed
func mixFloatBuffers(a, b floatBuffer, bScale float64) floatBuffer {
	if len(b) > len(a) {
		extended := make(floatBuffer, len(b))
		copy(extended, a)
		a = extended
	}
	for i := range b {
		a[i] += b[i] * bScale
	}
	return a
}

// concatFloatBuffers appends b to a
func concatFloatBuffers(a, b floatBuffer) floatBuffer {
	result := make(floatBuffer, len(a)+len(b))
	copy(result, a)
	copy(result[len(a):], b)
	return result
}

// scale multiplies every sample in place
func (b floatBuffer) scale(v float64) floatBuffer {
	for i := range b {
		b[i] *= v
	}
	return b
}

// --- Sound Generators (unity gain) ---

func (s synth) errorSound() floatBuffer {
	buf := s.oscillator(waveSaw, 100.0, s.samples(constant.ErrorSoundDuration))
	s.applyEnvelope(buf, constant.ErrorSoundAttack, constant.ErrorSoundRelease)
	return buf
}

func (s synth) bellSound() floatBuffer {
	samples := s.samples(constant.BellSoundDuration)

	// Fundamental A5 (880Hz)
	fund := s.oscillator(waveSine, 880.0, samples)
	s.applyEnvelope(fund, constant.BellSoundAttack, constant.BellSoundFundamentalRelease)

	// Overtone A6 (1760Hz)
	over := s.oscillator(waveSine, 1760.0, samples)
	s.applyEnvelope(over, constant.BellSoundAttack, constant.BellSoundOvertoneRelease)

	// Mix 70% fundamental + 30% overtone
	return mixFloatBuffers(fund, over, 0.3/0.7).scale(0.7)
}

func (s synth) whooshSound() floatBuffer {
	buf := s.oscillator(waveNoise, 0, s.samples(constant.WhooshSoundDuration))
	s.applyEnvelope(buf, constant.WhooshSoundAttack, constant.WhooshSoundRelease)
	return buf
}

func (s synth) coinSound() floatBuffer {
	// Note 1: B5 (987.77 Hz)
	n1 := s.oscillator(waveSquare, NoteFreq(83), s.samples(constant.CoinSoundNote1Duration))
	s.applyEnvelope(n1, constant.CoinSoundAttack, constant.CoinSoundNote1Release)

	// Note 2: E6 (1318.51 Hz)
	n2 := s.oscillator(waveSquare, NoteFreq(88), s.samples(constant.CoinSoundNote2Duration))
	s.applyEnvelope(n2, constant.CoinSoundAttack, constant.CoinSoundNote2Release)

	return concatFloatBuffers(n1, n2).scale(0.5)
}

// tuneProgression is an Am-F-C-G arpeggio in MIDI notes
var tuneProgression = [][]int{
	{57, 60, 64, 69},
	{53, 57, 60, 65},
	{48, 52, 55, 60},
	{55, 59, 62, 67},
}

// tuneSound is a looping arpeggio used as stand-in background music
func (s synth) tuneSound() floatBuffer {
	var out floatBuffer
	for bar := 0; bar < constant.TuneBars; bar++ {
		for _, chord := range tuneProgression {
			for _, note := range chord {
				n := s.oscillator(waveSine, NoteFreq(note), s.samples(constant.TuneNoteDuration))
				s.applyEnvelope(n, constant.TuneNoteAttack, constant.TuneNoteRelease)
				out = concatFloatBuffers(out, n.scale(0.4))
			}
		}
	}
	return out
}

// generate dispatches to a named generator
func (s synth) generate(name string) (floatBuffer, error) {
	switch name {
	case "error":
		return s.errorSound(), nil
	case "bell":
		return s.bellSound(), nil
	case "whoosh":
		return s.whooshSound(), nil
	case "coin":
		return s.coinSound(), nil
	case "tune":
		return s.tuneSound(), nil
	case "silence":
		return make(floatBuffer, constant.WarmupFrames), nil
	default:
		return nil, fmt.Errorf("%w: unknown synth sound %q", ErrUnsupportedFormat, name)
	}
}

// Synthesize renders a built-in sound into PCM
func Synthesize(name string, f Format) (PCM, error) {
	buf, err := synth{rate: f.SampleRate}.generate(name)
	if err != nil {
		return PCM{}, err
	}
	return floatToPCM(buf, f), nil
}
