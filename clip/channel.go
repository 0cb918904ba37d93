package clip

import (
	"fmt"

	"github.com/lixenwraith/quicksound/audio"
)

// ChannelState is the lifecycle of one channel
type ChannelState uint8

const (
	ChannelIdle ChannelState = iota
	ChannelPlaying
	ChannelReleased
	// ChannelAbsent marks a slot whose decode failed
	ChannelAbsent
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelPlaying:
		return "playing"
	case ChannelReleased:
		return "released"
	case ChannelAbsent:
		return "absent"
	default:
		return fmt.Sprintf("ChannelState(%d)", uint8(s))
	}
}

// Channel is one independently playable copy of a pool's asset.
// Owned by its pool and only touched under the pool lock.
type Channel struct {
	voice    audio.Voice
	released bool
}

func newChannel(dev audio.Device, pcm audio.PCM) (*Channel, error) {
	v, err := dev.NewVoice(pcm.Reader())
	if err != nil {
		return nil, err
	}
	return &Channel{voice: v}, nil
}

// State reports the channel's current state
func (c *Channel) State() ChannelState {
	switch {
	case c.released:
		return ChannelReleased
	case c.voice.IsPlaying():
		return ChannelPlaying
	default:
		return ChannelIdle
	}
}

func (c *Channel) IsPlaying() bool {
	return !c.released && c.voice.IsPlaying()
}

// start plays from the beginning, restarting in place if already playing
func (c *Channel) start() error {
	if c.released {
		return ErrPlayOnReleased
	}
	if err := c.voice.Rewind(); err != nil {
		return err
	}
	c.voice.Play()
	return nil
}

func (c *Channel) stop() error {
	if c.released {
		return ErrPlayOnReleased
	}
	c.voice.Pause()
	return nil
}

// release is terminal; a second release returns ErrPlayOnReleased
func (c *Channel) release() error {
	if c.released {
		return ErrPlayOnReleased
	}
	c.released = true
	c.voice.Pause()
	return c.voice.Close()
}
