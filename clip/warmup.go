package clip

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/quicksound/audio"
	"github.com/lixenwraith/quicksound/constant"
	"github.com/lixenwraith/quicksound/log"
)

// warmer plays one near-silent buffer exactly once so the output device
// leaves its cold-start state before the first real play
type warmer struct {
	once sync.Once
	done atomic.Bool

	pollInterval time.Duration
	timeout      time.Duration
}

var global = newWarmer()

func newWarmer() *warmer {
	return &warmer{
		pollInterval: constant.WarmupPollInterval,
		timeout:      constant.WarmupTimeout,
	}
}

// Warmup wakes the audio device; only the first call in a process does anything.
// New calls it automatically unless WithoutWarmup is given.
func Warmup(dev audio.Device) {
	global.run(dev)
}

// Warmed reports whether the process-wide warm-up has run
func Warmed() bool {
	return global.done.Load()
}

func (w *warmer) run(dev audio.Device) {
	w.once.Do(func() {
		w.done.Store(true)
		if err := w.prime(dev); err != nil {
			log.Warn(log.CatPool, "Audio warm-up failed", "error", err)
		}
	})
}

func (w *warmer) prime(dev audio.Device) error {
	pcm := audio.Silence(dev.Format(), constant.WarmupFrames)
	v, err := dev.NewVoice(pcm.Reader())
	if err != nil {
		return fmt.Errorf("create warm-up voice: %w", err)
	}
	v.Play()
	log.Debug(log.CatPool, "Audio warm-up started", "frames", constant.WarmupFrames, "silent", dev.Silent())

	go w.release(v)
	return nil
}

// release closes the warm-up voice once it finishes or the timeout passes
func (w *warmer) release(v audio.Voice) {
	deadline := time.Now().Add(w.timeout)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for v.IsPlaying() && time.Now().Before(deadline) {
		<-ticker.C
	}

	v.Pause()
	if err := v.Close(); err != nil {
		log.Warn(log.CatPool, "Warm-up voice release failed", "error", err)
		return
	}
	log.Debug(log.CatPool, "Audio warm-up complete")
}
