package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/lixenwraith/quicksound/audio"
	"github.com/lixenwraith/quicksound/clip"
	"github.com/lixenwraith/quicksound/config"
	"github.com/lixenwraith/quicksound/log"
	"github.com/lixenwraith/quicksound/music"
)

// runtime wires the device, decoders and watcher shared by the subcommands
type runtime struct {
	cfg     config.Config
	dev     audio.Device
	files   *audio.FileDecoder
	cache   *audio.CachingDecoder
	watcher *audio.Watcher
}

// newRuntime opens the configured device and asset directory
func newRuntime(cfg config.Config) *runtime {
	dev := audio.OpenDevice(&cfg.Audio)
	rt := newRuntimeWith(cfg, dev, os.DirFS(cfg.Audio.AssetDir))

	if cfg.Audio.WatchAssets {
		w, err := audio.NewWatcher(cfg.Audio.AssetDir, rt.cache)
		if err != nil {
			log.Warn(log.CatAudio, "Asset watching disabled", "dir", cfg.Audio.AssetDir, "error", err)
		} else {
			rt.watcher = w
		}
	}
	return rt
}

// newRuntimeWith uses a caller-supplied device and asset file system
func newRuntimeWith(cfg config.Config, dev audio.Device, assets fs.FS) *runtime {
	files := audio.NewFileDecoder(assets, dev.Format(), cfg.Audio.ResampleQuality)
	return &runtime{
		cfg:   cfg,
		dev:   dev,
		files: files,
		cache: audio.NewCachingDecoder(files, cfg.Audio.CacheTTL),
	}
}

// newPool builds a clip pool for locator with the configured channel count
func (rt *runtime) newPool(locator string, policy clip.Policy) (*clip.Pool, error) {
	return clip.New(rt.dev, rt.cache, locator, rt.cfg.Pool.Channels,
		clip.WithPolicy(policy),
		clip.WithStrictLoad(rt.cfg.Pool.StrictLoad),
	)
}

func (rt *runtime) newMusic() (*music.Player, error) {
	return music.New(rt.dev, rt.files, rt.cfg.Demo.Music,
		music.WithResampleQuality(rt.cfg.Audio.ResampleQuality),
		music.WithRepeat(rt.cfg.Demo.Repeat),
	)
}

// changed reports asset invalidations; nil when not watching
func (rt *runtime) changed() <-chan string {
	if rt.watcher == nil {
		return nil
	}
	return rt.watcher.Changed()
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.watcher != nil {
		errs = append(errs, rt.watcher.Close())
	}
	rt.cache.Purge()
	if err := rt.dev.Close(); err != nil && !errors.Is(err, audio.ErrDeviceClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
