// Package config loads quicksound settings from defaults, an optional YAML
// file and QUICKSOUND_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/quicksound/audio"
	"github.com/lixenwraith/quicksound/constant"
	"github.com/lixenwraith/quicksound/log"
)

// EnvPrefix namespaces environment overrides, e.g. QUICKSOUND_AUDIO_HEADLESS
const EnvPrefix = "QUICKSOUND"

// Config holds all configuration options for quicksound
type Config struct {
	Audio audio.Config `mapstructure:"audio" yaml:"audio"`
	Pool  PoolConfig   `mapstructure:"pool" yaml:"pool"`
	Demo  DemoConfig   `mapstructure:"demo" yaml:"demo"`
	Log   LogConfig    `mapstructure:"log" yaml:"log"`
}

// PoolConfig sets up the demo's clip pools
type PoolConfig struct {
	Channels   int  `mapstructure:"channels" yaml:"channels"`
	StrictLoad bool `mapstructure:"strict_load" yaml:"strict_load"`
}

// DemoConfig names the assets the demo plays.
// Locators are relative to audio.asset_dir or use the synth: scheme.
type DemoConfig struct {
	Coin   string `mapstructure:"coin" yaml:"coin"`
	Music  string `mapstructure:"music" yaml:"music"`
	Repeat bool   `mapstructure:"repeat" yaml:"repeat"`
}

// LogConfig controls the log sink; an empty file discards logs
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Audio: *audio.DefaultConfig(),
		Pool: PoolConfig{
			Channels: constant.DefaultPoolChannels,
		},
		Demo: DemoConfig{
			Coin:  audio.SynthScheme + "coin",
			Music: audio.SynthScheme + "tune",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// setDefaults registers every key so env overrides apply without a file
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.buffer_size", d.Audio.BufferSize)
	v.SetDefault("audio.headless", d.Audio.Headless)
	v.SetDefault("audio.asset_dir", d.Audio.AssetDir)
	v.SetDefault("audio.cache_ttl", d.Audio.CacheTTL)
	v.SetDefault("audio.resample_quality", d.Audio.ResampleQuality)
	v.SetDefault("audio.watch_assets", d.Audio.WatchAssets)
	v.SetDefault("audio.master_volume", d.Audio.MasterVolume)

	v.SetDefault("pool.channels", d.Pool.Channels)
	v.SetDefault("pool.strict_load", d.Pool.StrictLoad)

	v.SetDefault("demo.coin", d.Demo.Coin)
	v.SetDefault("demo.music", d.Demo.Music)
	v.SetDefault("demo.repeat", d.Demo.Repeat)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// NewViper returns a viper instance with defaults and env binding applied.
// Callers may bind flags on it before passing it to Decode.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (optional, "" skips the file) on top of the defaults
func Load(path string) (Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return Config{}, err
	}
	return Decode(v)
}

// ReadFile merges a YAML config file into v; "" is a no-op
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	log.Debug(log.CatConfig, "Config file loaded", "path", path)
	return nil
}

// Decode unmarshals v and clamps out-of-range values
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes recoverable values and rejects the rest
func (c *Config) Validate() error {
	c.Audio.Normalize()
	if c.Pool.Channels < 0 {
		log.Warn(log.CatConfig, "Negative pool channel count clamped", "channels", c.Pool.Channels)
		c.Pool.Channels = 0
	}

	var errs []error
	if c.Demo.Coin == "" {
		errs = append(errs, errors.New("demo.coin must name an asset"))
	}
	if c.Demo.Music == "" {
		errs = append(errs, errors.New("demo.music must name an asset"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// WriteYAML dumps the configuration
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
