//go:build headless

package audio

// openOto is unavailable in headless builds, OpenDevice falls back to silence
func openOto(*Config) (Device, error) {
	return nil, ErrNoAudioBackend
}
