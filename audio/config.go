package audio

import (
	"time"

	"github.com/lixenwraith/quicksound/constant"
)

// Config holds device and asset settings
type Config struct {
	SampleRate      int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	BufferSize      time.Duration `mapstructure:"buffer_size" yaml:"buffer_size"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	AssetDir        string        `mapstructure:"asset_dir" yaml:"asset_dir"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	ResampleQuality int           `mapstructure:"resample_quality" yaml:"resample_quality"`
	WatchAssets     bool          `mapstructure:"watch_assets" yaml:"watch_assets"`
	MasterVolume    float64       `mapstructure:"master_volume" yaml:"master_volume"`
}

// DefaultConfig returns the built-in device settings
func DefaultConfig() *Config {
	return &Config{
		SampleRate:      constant.AudioSampleRate,
		BufferSize:      constant.AudioBufferDuration,
		Headless:        false,
		AssetDir:        "assets",
		CacheTTL:        constant.DecodeCacheTTL,
		ResampleQuality: constant.AudioResampleQuality,
		WatchAssets:     false,
		MasterVolume:    constant.AudioMasterVolume,
	}
}

// Normalize clamps out-of-range values back into usable ones
func (c *Config) Normalize() {
	if c.SampleRate <= 0 {
		c.SampleRate = constant.AudioSampleRate
	}
	if c.BufferSize < 0 {
		c.BufferSize = 0
	}
	if c.CacheTTL < 0 {
		c.CacheTTL = 0
	}
	if c.ResampleQuality < 1 {
		c.ResampleQuality = 1
	} else if c.ResampleQuality > 64 {
		c.ResampleQuality = 64
	}
	if c.MasterVolume < 0 {
		c.MasterVolume = 0
	} else if c.MasterVolume > 1 {
		c.MasterVolume = 1
	}
	if c.AssetDir == "" {
		c.AssetDir = "."
	}
}

// Format returns the device format implied by the config
func (c *Config) Format() Format {
	return Format{SampleRate: c.SampleRate, Channels: constant.AudioChannels}
}
