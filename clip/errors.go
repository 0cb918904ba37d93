package clip

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrLoad matches every *LoadError via errors.Is
	ErrLoad = errors.New("clip load failed")

	// ErrPlayOnReleased rejects use of a pool after Close
	ErrPlayOnReleased = errors.New("play on released channel")

	// ErrNoChannelsAvailable is returned when every slot failed to load
	ErrNoChannelsAvailable = errors.New("no channels available")
)

// LoadError reports a channel that could not be decoded or attached to the device
type LoadError struct {
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Locator, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}
