// Package clip preloads one short sound into several playback channels and
// hands them out round robin, growing the pool when the next channel in line
// is still playing. Steady-state size converges on the peak overlap seen.
package clip

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lixenwraith/quicksound/audio"
	"github.com/lixenwraith/quicksound/constant"
	"github.com/lixenwraith/quicksound/log"
)

// Stats counts pool activity since construction
type Stats struct {
	Plays       uint64
	Grows       uint64
	FailedGrows uint64
	Restarts    uint64
}

// Pool is a growable set of channels for a single asset.
// All methods are safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	id      string
	locator string
	dev     audio.Device
	dec     audio.Decoder
	opts    options

	channels []*Channel // nil entries are absent slots
	cursor   int
	closed   bool
	stats    Stats
}

// New decodes channels copies of locator. Negative counts are treated as 0,
// in which case the first Play loads the first channel.
func New(dev audio.Device, dec audio.Decoder, locator string, channels int, opts ...Option) (*Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.warmer != nil {
		o.warmer.run(dev)
	}

	if channels < 0 {
		channels = 0
	}

	p := &Pool{
		id:       uuid.NewString(),
		locator:  locator,
		dev:      dev,
		dec:      dec,
		opts:     o,
		channels: make([]*Channel, 0, channels),
	}

	for i := 0; i < channels; i++ {
		ch, err := p.load()
		if err != nil {
			if o.strict {
				p.releaseAll()
				return nil, err
			}
			log.Warn(log.CatPool, "Channel failed to load, slot left absent",
				"pool", p.id, "locator", locator, "slot", i, "error", err)
		}
		p.channels = append(p.channels, ch)
	}

	log.Debug(log.CatPool, "Pool created",
		"pool", p.id,
		"locator", locator,
		"channels", len(p.channels),
		"absent", p.absent(),
		"policy", o.policy,
	)
	return p, nil
}

// NewDefault creates a pool with the default single channel
func NewDefault(dev audio.Device, dec audio.Decoder, locator string, opts ...Option) (*Pool, error) {
	return New(dev, dec, locator, constant.DefaultPoolChannels, opts...)
}

// load decodes the asset and attaches a new voice to the device
func (p *Pool) load() (*Channel, error) {
	pcm, err := p.dec.Decode(p.locator)
	if err != nil {
		return nil, &LoadError{Locator: p.locator, Err: err}
	}
	if want := p.dev.Format(); pcm.Format != want {
		return nil, &LoadError{
			Locator: p.locator,
			Err:     fmt.Errorf("%w: decoded %+v, device wants %+v", audio.ErrUnsupportedFormat, pcm.Format, want),
		}
	}
	ch, err := newChannel(p.dev, pcm)
	if err != nil {
		return nil, &LoadError{Locator: p.locator, Err: err}
	}
	return ch, nil
}

// grow appends one fresh channel; on failure the pool is unchanged
func (p *Pool) grow() (*Channel, error) {
	ch, err := p.load()
	if err != nil {
		p.stats.FailedGrows++
		log.Warn(log.CatPool, "Pool grow failed", "pool", p.id, "locator", p.locator, "error", err)
		return nil, err
	}
	p.channels = append(p.channels, ch)
	p.stats.Grows++
	log.Debug(log.CatPool, "Pool grown", "pool", p.id, "channels", len(p.channels))
	return ch, nil
}

// Play starts the asset on the next free channel and returns without waiting
func (p *Pool) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayOnReleased
	}

	if len(p.channels) == 0 {
		if _, err := p.grow(); err != nil {
			return err
		}
	}

	idx, ok := p.nextPresent()
	if !ok {
		return ErrNoChannelsAvailable
	}
	ch := p.channels[idx]

	if ch.IsPlaying() {
		if p.opts.policy == PolicyRestart {
			p.stats.Restarts++
		} else {
			grown, err := p.grow()
			if err != nil {
				return err
			}
			idx, ch = len(p.channels)-1, grown
		}
	}

	if err := ch.start(); err != nil {
		return fmt.Errorf("start channel %d: %w", idx, err)
	}
	p.stats.Plays++
	p.cursor = (idx + 1) % len(p.channels)
	return nil
}

// nextPresent finds the first loaded slot at or after the cursor
func (p *Pool) nextPresent() (int, bool) {
	n := len(p.channels)
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		if p.channels[idx] != nil {
			return idx, true
		}
	}
	return 0, false
}

// Stop silences every channel; idempotent until Close
func (p *Pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayOnReleased
	}
	for i, ch := range p.channels {
		if ch == nil {
			continue
		}
		if err := ch.stop(); err != nil {
			log.Warn(log.CatPool, "Channel stop failed", "pool", p.id, "slot", i, "error", err)
		}
	}
	return nil
}

// Close releases every channel. The pool cannot be used afterwards and a
// second Close returns ErrPlayOnReleased.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayOnReleased
	}
	p.closed = true
	err := p.releaseAll()

	log.Debug(log.CatPool, "Pool closed",
		"pool", p.id,
		"channels", len(p.channels),
		"plays", p.stats.Plays,
		"grows", p.stats.Grows,
	)
	return err
}

func (p *Pool) releaseAll() error {
	var errs []error
	for i, ch := range p.channels {
		if ch == nil {
			continue
		}
		if err := ch.release(); err != nil {
			errs = append(errs, fmt.Errorf("release channel %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) absent() int {
	n := 0
	for _, ch := range p.channels {
		if ch == nil {
			n++
		}
	}
	return n
}

// Len returns the number of slots, absent ones included
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

// Cursor returns the slot the next Play will try first
func (p *Pool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Absent returns the number of slots that failed to load
func (p *Pool) Absent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.absent()
}

// Playing returns the number of channels currently producing sound
func (p *Pool) Playing() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, ch := range p.channels {
		if ch != nil && ch.IsPlaying() {
			n++
		}
	}
	return n
}

func (p *Pool) AnyPlaying() bool {
	return p.Playing() > 0
}

// States snapshots every slot in order
func (p *Pool) States() []ChannelState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ChannelState, len(p.channels))
	for i, ch := range p.channels {
		if ch == nil {
			out[i] = ChannelAbsent
			continue
		}
		out[i] = ch.State()
	}
	return out
}

func (p *Pool) Locator() string { return p.locator }

// ID identifies the pool in logs
func (p *Pool) ID() string { return p.id }

func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
