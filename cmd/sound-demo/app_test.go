package main

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/quicksound/audio"
	"github.com/lixenwraith/quicksound/config"
	"github.com/lixenwraith/quicksound/music"
)

func newTestApp(t *testing.T) (*SoundApp, tcell.SimulationScreen, *audio.ManualClock) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(100, 30)
	t.Cleanup(screen.Fini)

	clock := audio.NewManualClock()
	dev := audio.NewHeadlessDevice(audio.DefaultFormat(), audio.WithClock(clock))
	rt := newRuntimeWith(config.Defaults(), dev, fstest.MapFS{})

	app, err := NewSoundApp(screen, rt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, screen, clock
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

// screenText joins every row of the simulation screen
func screenText(s tcell.SimulationScreen) string {
	w, h := s.Size()
	var sb strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := s.GetContent(x, y)
			if r == 0 {
				r = ' '
			}
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestSoundAppSpamGrowsPool(t *testing.T) {
	app, _, _ := newTestApp(t)

	for i := 0; i < 4; i++ {
		require.True(t, app.handleInput(key('s')))
	}
	assert.Equal(t, 4, app.spam.Len())
	assert.Equal(t, 4, app.spam.Playing())
}

func TestSoundAppCoinCutsOff(t *testing.T) {
	app, _, _ := newTestApp(t)

	for i := 0; i < 4; i++ {
		require.True(t, app.handleInput(key('c')))
	}
	assert.Equal(t, 1, app.coin.Len())
	assert.Equal(t, uint64(3), app.coin.Stats().Restarts)
}

func TestSoundAppMusicControls(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.handleInput(key('p'))
	assert.Equal(t, music.StatePlaying, app.music.State())

	app.handleInput(key(' '))
	assert.Equal(t, music.StatePaused, app.music.State())
	app.handleInput(key(' '))
	assert.Equal(t, music.StatePlaying, app.music.State())

	app.handleInput(key('r'))
	assert.True(t, app.music.Repeat())

	app.handleInput(key('f'))
	assert.Equal(t, 10*time.Second, app.music.Position())

	// The jump is absolute: 5:00 on a 16s track wraps to 0:12 while repeating
	require.Equal(t, 16*time.Second, app.music.Duration())
	app.handleInput(key('F'))
	assert.Equal(t, 12*time.Second, app.music.Position())
	assert.Equal(t, music.StatePlaying, app.music.State())

	app.handleInput(key('F'))
	assert.Equal(t, 12*time.Second, app.music.Position(), "jumping twice lands on the same spot")

	app.handleInput(key('x'))
	assert.Equal(t, music.StateStopped, app.music.State())
	assert.Equal(t, time.Duration(0), app.music.Position())
}

func TestSoundAppQuitKeys(t *testing.T) {
	app, _, _ := newTestApp(t)

	assert.False(t, app.handleInput(key('q')))
	assert.False(t, app.handleInput(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, app.handleInput(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone)))
	assert.True(t, app.handleInput(key('z')), "unbound keys are ignored")
}

func TestSoundAppActionLogIsBounded(t *testing.T) {
	app, _, _ := newTestApp(t)

	for i := 0; i < 20; i++ {
		app.handleInput(key('r'))
	}
	assert.Equal(t, 6, app.actions.Length())
	assert.Contains(t, app.actions.Get(5).(string), "Repeat off")
}

func TestSoundAppDraw(t *testing.T) {
	app, screen, _ := newTestApp(t)

	app.handleInput(key('s'))
	app.handleInput(key('s'))
	app.draw()

	text := screenText(screen)
	assert.Contains(t, text, "quicksound demo")
	assert.Contains(t, text, "[s] Spam Coin")
	assert.Contains(t, text, "[space] Pause/Resume")
	assert.Contains(t, text, "channels 2")
	assert.Contains(t, text, "synth:tune")
	assert.Contains(t, text, "Ready (silent mode)")
}

func TestSoundAppDrawNarrowScreen(t *testing.T) {
	app, screen, _ := newTestApp(t)
	screen.SetSize(20, 30)
	app.handleInput(tcell.NewEventResize(20, 30))

	require.NotPanics(t, app.draw)
	assert.Equal(t, 20, app.width)
}

func TestSpamCommandReportsGrowth(t *testing.T) {
	clock := audio.NewManualClock()
	dev := audio.NewHeadlessDevice(audio.DefaultFormat(), audio.WithClock(clock))
	rt := newRuntimeWith(config.Defaults(), dev, fstest.MapFS{})

	cmd := newSpamCmd(&cli{})
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, spam(cmd, rt, 5, 0))
	assert.Contains(t, out.String(), "channels     5")
	assert.Contains(t, out.String(), "plays        5")
	assert.Contains(t, out.String(), "peak overlap 5")
	assert.Contains(t, out.String(), "silent device")
}

func TestSpamCommandMissingAsset(t *testing.T) {
	cfg := config.Defaults()
	cfg.Demo.Coin = "missing.wav"
	cfg.Pool.StrictLoad = true
	rt := newRuntimeWith(cfg, audio.NewHeadlessDevice(audio.DefaultFormat()), fstest.MapFS{})

	err := spam(newSpamCmd(&cli{}), rt, 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.wav")
}

func TestConfigCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--headless", "--asset-dir", "sfx"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "headless: true")
	assert.Contains(t, out.String(), "asset_dir: sfx")
	assert.Contains(t, out.String(), "coin: synth:coin")
}

func TestSpamCommandHeadlessEndToEnd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"spam", "--headless", "--count", "3", "--interval", "0s"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "plays        3")
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", formatClock(0))
	assert.Equal(t, "0:10", formatClock(10*time.Second))
	assert.Equal(t, "5:07", formatClock(5*time.Minute+7*time.Second))
}
