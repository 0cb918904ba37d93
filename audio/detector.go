package audio

import (
	"github.com/lixenwraith/quicksound/log"
)

// OpenDevice returns the oto-backed output device, or a silent headless
// device when headless mode is requested or no backend is available.
// Falling back to silence is not an error.
func OpenDevice(cfg *Config) Device {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Headless {
		log.Info(log.CatAudio, "Headless audio requested", "sampleRate", cfg.SampleRate)
		return NewHeadlessDevice(cfg.Format())
	}

	dev, err := openOto(cfg)
	if err != nil {
		log.Warn(log.CatAudio, "Audio backend unavailable, running silent", "error", err)
		return NewHeadlessDevice(cfg.Format())
	}

	log.Info(log.CatAudio, "Audio device opened",
		"sampleRate", cfg.SampleRate,
		"bufferSize", cfg.BufferSize,
		"volume", cfg.MasterVolume,
	)
	return dev
}
