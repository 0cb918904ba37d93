package constant

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate    = 44100
	AudioChannels      = 2
	AudioBitDepth      = 16
	AudioBytesPerFrame = AudioChannels * (AudioBitDepth / 8) // 4 bytes
)

// Audio Device
const (
	// AudioBufferDuration is the device buffer handed to oto, trades latency for glitch safety
	AudioBufferDuration = 50 * time.Millisecond

	// AudioResampleQuality is the beep resampler quality (1-64, 4 is the beep default)
	AudioResampleQuality = 4

	// AudioMasterVolume applies to every voice created by a device
	AudioMasterVolume = 1.0

	// AudioRenderChunk is frames decoded per Stream call when rendering to PCM
	AudioRenderChunk = 512

	// HeadlessPumpInterval is how often the silent device feeds stream voices
	HeadlessPumpInterval = 20 * time.Millisecond
)

// Warm-up
const (
	// WarmupFrames of silence played once per process to wake the output device
	WarmupFrames = 1

	// WarmupPollInterval between IsPlaying checks before the warm-up voice is released
	WarmupPollInterval = 5 * time.Millisecond

	// WarmupTimeout bounds how long the warm-up voice is kept alive
	WarmupTimeout = 2 * time.Second
)

// Clip Pool
const (
	// DefaultPoolChannels is the preloaded channel count when none is configured
	DefaultPoolChannels = 1

	// DecodeCacheTTL keeps decoded PCM around for grow-time channel creation
	DecodeCacheTTL = 5 * time.Minute
)

// Music Player
const (
	MusicForwardShort = 10 * time.Second

	// MusicJumpTo is the absolute position of the long seek button
	MusicJumpTo = 5 * time.Minute
)

// Demo UI
const (
	// DemoFrameInterval is the status redraw rate
	DemoFrameInterval = 50 * time.Millisecond

	// DemoLogLines is the number of recent actions shown
	DemoLogLines = 6
)

// Error Sound
const (
	ErrorSoundDuration = 80 * time.Millisecond
	ErrorSoundAttack   = 5 * time.Millisecond
	ErrorSoundRelease  = 20 * time.Millisecond
)

// Bell Sound
const (
	BellSoundDuration           = 600 * time.Millisecond
	BellSoundAttack             = 5 * time.Millisecond
	BellSoundFundamentalRelease = 550 * time.Millisecond
	BellSoundOvertoneRelease    = 200 * time.Millisecond
)

// Whoosh Sound
const (
	WhooshSoundDuration = 300 * time.Millisecond
	WhooshSoundAttack   = 150 * time.Millisecond
	WhooshSoundRelease  = 150 * time.Millisecond
)

// Coin Sound
const (
	CoinSoundNote1Duration = 80 * time.Millisecond
	CoinSoundNote2Duration = 280 * time.Millisecond
	CoinSoundAttack        = 5 * time.Millisecond
	CoinSoundNote1Release  = 40 * time.Millisecond
	CoinSoundNote2Release  = 200 * time.Millisecond
)

// Tune (synthesized background track)
const (
	TuneNoteDuration = 250 * time.Millisecond
	TuneNoteAttack   = 10 * time.Millisecond
	TuneNoteRelease  = 120 * time.Millisecond
	TuneBars         = 4
)
