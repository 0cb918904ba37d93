package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/eapache/queue"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/quicksound/clip"
	"github.com/lixenwraith/quicksound/constant"
	"github.com/lixenwraith/quicksound/log"
	"github.com/lixenwraith/quicksound/music"
)

type button struct {
	key   rune
	label string
}

var buttons = []button{
	{'c', "Coin"},
	{'s', "Spam Coin"},
	{'p', "Play Music"},
	{'r', "Repeat"},
	{'x', "Stop Music"},
	{' ', "Pause/Resume"},
	{'f', "Forward 10 sec"},
	{'F', "Jump to 5 min"},
	{'q', "Quit"},
}

// SoundApp is the interactive demo: two coin pools and a music player
type SoundApp struct {
	screen        tcell.Screen
	width, height int

	rt    *runtime
	coin  *clip.Pool // restart policy, cuts itself off when spammed
	spam  *clip.Pool // grow policy
	music *music.Player

	actions *queue.Queue // recent action lines, oldest first
	flash   rune
	flashAt time.Time
}

// NewSoundApp loads both pools and the music track on rt
func NewSoundApp(screen tcell.Screen, rt *runtime) (*SoundApp, error) {
	coin, err := rt.newPool(rt.cfg.Demo.Coin, clip.PolicyRestart)
	if err != nil {
		return nil, fmt.Errorf("coin pool: %w", err)
	}
	spam, err := rt.newPool(rt.cfg.Demo.Coin, clip.PolicyGrow)
	if err != nil {
		coin.Close()
		return nil, fmt.Errorf("spam pool: %w", err)
	}
	player, err := rt.newMusic()
	if err != nil {
		coin.Close()
		spam.Close()
		return nil, fmt.Errorf("music: %w", err)
	}

	a := &SoundApp{
		screen:  screen,
		rt:      rt,
		coin:    coin,
		spam:    spam,
		music:   player,
		actions: queue.New(),
	}
	a.width, a.height = screen.Size()

	mode := "audio"
	if rt.dev.Silent() {
		mode = "silent"
	}
	a.record(fmt.Sprintf("Ready (%s mode)", mode))
	return a, nil
}

// record appends to the action log, keeping the newest lines
func (a *SoundApp) record(line string) {
	a.actions.Add(time.Now().Format("15:04:05") + "  " + line)
	for a.actions.Length() > constant.DemoLogLines {
		a.actions.Remove()
	}
	log.Debug(log.CatUI, line)
}

func (a *SoundApp) recordErr(what string, err error) {
	a.record(fmt.Sprintf("%s failed: %v", what, err))
}

// press runs the action bound to key and reports false on quit
func (a *SoundApp) press(key rune) bool {
	a.flash, a.flashAt = key, time.Now()

	switch key {
	case 'c':
		if err := a.coin.Play(); err != nil {
			a.recordErr("Coin", err)
			return true
		}
		a.record("Coin")

	case 's':
		if err := a.spam.Play(); err != nil {
			a.recordErr("Spam Coin", err)
			return true
		}
		a.record(fmt.Sprintf("Spam Coin (%d channels)", a.spam.Len()))

	case 'p':
		if err := a.music.Play(); err != nil {
			a.recordErr("Play Music", err)
			return true
		}
		a.record("Play Music")

	case 'r':
		if a.music.ToggleRepeat() {
			a.record("Repeat on")
		} else {
			a.record("Repeat off")
		}

	case 'x':
		if err := a.music.Stop(); err != nil {
			a.recordErr("Stop Music", err)
			return true
		}
		a.record("Stop Music")

	case ' ':
		paused, err := a.music.TogglePause()
		switch {
		case err != nil:
			a.recordErr("Pause/Resume", err)
		case paused:
			a.record("Pause")
		case a.music.State() == music.StatePlaying:
			a.record("Resume")
		default:
			a.record("Nothing to pause")
		}

	case 'f':
		a.forward(constant.MusicForwardShort)

	case 'F':
		if err := a.music.Seek(constant.MusicJumpTo); err != nil {
			a.recordErr("Jump", err)
			return true
		}
		a.record(fmt.Sprintf("Jump to %s -> %s", formatClock(constant.MusicJumpTo), formatClock(a.music.Position())))

	case 'q':
		return false
	}
	return true
}

func (a *SoundApp) forward(d time.Duration) {
	if err := a.music.Forward(d); err != nil {
		a.recordErr("Forward", err)
		return
	}
	a.record(fmt.Sprintf("Forward %s -> %s", d, formatClock(a.music.Position())))
}

// handleInput processes one event and reports false when the app should exit
func (a *SoundApp) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			return a.press(ev.Rune())
		}

	case *tcell.EventResize:
		a.width, a.height = a.screen.Size()
		a.screen.Sync()
	}
	return true
}

// drawText writes s at (x, y) clipped to the screen width, returns the next column
func (a *SoundApp) drawText(x, y int, s string, style tcell.Style) int {
	if y < 0 || y >= a.height || x >= a.width {
		return x
	}
	s = runewidth.Truncate(s, a.width-x, "…")
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}

func (a *SoundApp) draw() {
	a.screen.Clear()

	title := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	label := tcell.StyleDefault.Foreground(tcell.ColorSilver)
	value := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	keyStyle := tcell.StyleDefault.Foreground(tcell.ColorAqua)
	active := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorAqua)

	a.drawText(1, 0, "quicksound demo", title)

	// Buttons, wrapped to the screen width
	x, y := 1, 2
	for _, b := range buttons {
		key := string(b.key)
		if b.key == ' ' {
			key = "space"
		}
		text := fmt.Sprintf("[%s] %s", key, b.label)
		w := runewidth.StringWidth(text) + 2
		if x+w > a.width && x > 1 {
			x, y = 1, y+1
		}
		style := keyStyle
		if b.key == a.flash && time.Since(a.flashAt) < 150*time.Millisecond {
			style = active
		}
		a.drawText(x, y, text, style)
		x += w
	}

	y += 2
	y = a.drawPool(y, "Coin", a.coin, label, value)
	y = a.drawPool(y, "Spam", a.spam, label, value)

	repeat := "off"
	if a.music.Repeat() {
		repeat = "on"
	}
	x = a.drawText(1, y, "Music  ", label)
	a.drawText(x, y, fmt.Sprintf("%-8s %s / %s  repeat %s  %s",
		a.music.State(),
		formatClock(a.music.Position()),
		formatClock(a.music.Duration()),
		repeat,
		a.music.Locator(),
	), value)

	y += 2
	a.drawText(1, y, "Recent", label)
	for i := 0; i < a.actions.Length(); i++ {
		a.drawText(3, y+1+i, a.actions.Get(i).(string), value)
	}

	a.screen.Show()
}

func (a *SoundApp) drawPool(y int, name string, p *clip.Pool, label, value tcell.Style) int {
	st := p.Stats()
	x := a.drawText(1, y, fmt.Sprintf("%-6s ", name), label)
	a.drawText(x, y, fmt.Sprintf("channels %-3d cursor %-3d playing %-3d plays %-5d grows %-3d restarts %d",
		p.Len(), p.Cursor(), p.Playing(), st.Plays, st.Grows, st.Restarts), value)
	return y + 1
}

// run drives input and redraws until quit
func (a *SoundApp) run() {
	ticker := time.NewTicker(constant.DemoFrameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	goSafe(a.screen, func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	})

	a.draw()
	for {
		select {
		case ev := <-eventChan:
			if !a.handleInput(ev) {
				return
			}
			a.draw()

		case locator := <-a.rt.changed():
			a.record("Asset changed: " + locator)

		case <-ticker.C:
			a.draw()
		}
	}
}

// Close releases pools and the music player
func (a *SoundApp) Close() error {
	return errors.Join(a.coin.Close(), a.spam.Close(), a.music.Close())
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}

// handleCrash restores the terminal before printing the panic and stack
func handleCrash(screen tcell.Screen, r any) {
	if r == nil {
		return
	}
	screen.Fini()

	fmt.Fprintf(os.Stderr, "\n\x1b[31mSOUND-DEMO CRASHED: %v\x1b[0m\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
	os.Exit(1)
}

// goSafe runs fn on a goroutine that restores the terminal on panic
func goSafe(screen tcell.Screen, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				handleCrash(screen, r)
			}
		}()
		fn()
	}()
}

func (c *cli) runDemo(cmd *cobra.Command, args []string) error {
	rt := newRuntime(c.cfg)
	defer rt.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}

	app, err := NewSoundApp(screen, rt)
	if err != nil {
		screen.Fini()
		return err
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				handleCrash(screen, r)
			}
		}()
		defer screen.Fini()
		app.run()
	}()

	if err := app.Close(); err != nil {
		log.Warn(log.CatUI, "Shutdown incomplete", "error", err)
	}
	return nil
}
