package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/mask-tray/internal/config"
	"github.com/petems/mask-tray/internal/logging"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

// Controls is what the tray needs from the application.
type Controls interface {
	Toggle()
	Devices() ([]string, error)
}

// UI is the system tray presenter. Display and TextChanged may be called
// before the tray is ready; the latest state is applied in onReady.
type UI struct {
	app     Controls
	cfg     *config.Config
	cfgPath string
	version string
	commit  string
	log     zerolog.Logger

	mu    sync.Mutex
	ready bool
	state state

	// Menu items
	mStartStop *systray.MenuItem
	mStatus    *systray.MenuItem
	mLastMatch *systray.MenuItem
	mCopy      *systray.MenuItem
	mDevices   *systray.MenuItem
}

type state struct {
	status    string
	active    bool
	available bool
	text      string
	lastMatch string
}

func New(cfg *config.Config, cfgPath, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		cfg:     cfg,
		cfgPath: cfgPath,
		version: version,
		commit:  commit,
		log:     log.With().Str("component", "tray").Logger(),
		state:   state{status: "idle", available: true},
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application Controls) {
	u.app = application
}

// Run blocks on the systray event loop until Quit.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

// Display implements session.Presenter.
func (u *UI) Display(ev session.DisplayEvent) {
	u.mu.Lock()
	u.state = apply(u.state, ev)
	s, ready := u.state, u.ready
	u.mu.Unlock()

	if ready {
		u.render(s)
	}
}

// TextChanged implements session.Presenter.
func (u *UI) TextChanged(text string) {
	u.mu.Lock()
	u.state.text = text
	ready := u.ready
	u.mu.Unlock()

	if ready {
		systray.SetTooltip(text)
		u.mStatus.SetTitle(text)
	}
}

func (u *UI) onReady() {
	systray.SetTooltip("Audio identification")

	u.mStartStop = systray.AddMenuItem("Start", "Start or stop identification")
	u.mStatus = systray.AddMenuItem("", "Engine status")
	u.mStatus.Disable()
	systray.AddSeparator()

	u.mLastMatch = systray.AddMenuItem("No match yet", "Last identified song")
	u.mLastMatch.Disable()
	u.mCopy = systray.AddMenuItem("Copy Last Match", "Copy the last match to the clipboard")
	u.mCopy.Disable()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio input device")
	u.buildDeviceMenu()

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About MaskTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	s := u.state
	u.mu.Unlock()
	u.render(s)
	if s.text != "" {
		systray.SetTooltip(s.text)
		u.mStatus.SetTitle(s.text)
	}

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			if u.app != nil {
				u.app.Toggle()
			}
		case <-u.mCopy.ClickedCh:
			u.copyLastMatch()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) render(s state) {
	systray.SetTitle(fmt.Sprintf("🎭 %s", emojiForStatus(s.status)))

	u.mStartStop.SetTitle(startStopLabel(s.active))
	if s.available {
		u.mStartStop.Enable()
	} else {
		u.mStartStop.Disable()
	}

	if s.lastMatch != "" {
		u.mLastMatch.SetTitle(s.lastMatch)
		u.mCopy.Enable()
	}
}

func (u *UI) buildDeviceMenu() {
	if u.app == nil {
		return
	}
	devices, err := u.app.Devices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, name := range devices {
		item := u.mDevices.AddSubMenuItem(name, "")
		if name == u.cfg.Audio.InputDevice {
			item.Check()
		}
		deviceItems[name] = item

		go func(deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				// Uncheck all other items
				for n, itm := range deviceItems {
					if n != deviceName {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				if err := u.saveDevice(deviceName); err != nil {
					u.log.Error().Err(err).Msg("Failed to save config")
				}
				u.log.Info().Str("device", deviceName).Msg("Changed audio device, applies on next launch")
			}
		}(name, item)
	}
}

func (u *UI) saveDevice(name string) error {
	u.cfg.SetInputDevice(name)
	if u.cfgPath == "" {
		return nil
	}
	return u.cfg.Save(u.cfgPath)
}

func (u *UI) copyLastMatch() {
	u.mu.Lock()
	match := u.state.lastMatch
	u.mu.Unlock()

	if match == "" {
		return
	}
	if err := clipboard.WriteAll(match); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy to clipboard")
		return
	}
	u.log.Info().Str("match", match).Msg("Copied last match")
}

func (u *UI) openLogs() {
	var cmd *exec.Cmd
	path := logging.LogPath()
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
	}
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("MaskTray - audio identification")
}

func (u *UI) onExit() {}

// apply folds a display event into the tray state.
func apply(s state, ev session.DisplayEvent) state {
	switch ev.Kind {
	case session.EventStarted:
		s.active, s.status = true, "listening"
	case session.EventStoppedFound:
		s.active, s.status = false, "found"
		s.lastMatch = formatMatch(ev.SongID, ev.Asset, ev.Offset)
	case session.EventStoppedTimeout, session.EventStoppedCancelled:
		s.active, s.status = false, "idle"
	case session.EventStartFailed:
		s.active, s.status = false, "error"
	case session.EventUnavailable:
		s.active, s.available, s.status = false, false, "error"
	}
	return s
}

func formatMatch(song, asset string, offset time.Duration) string {
	if asset == "" {
		return song
	}
	return fmt.Sprintf("%s → %s @ %s", song, asset, offset.Round(time.Millisecond))
}

func startStopLabel(active bool) string {
	if active {
		return "Stop"
	}
	return "Start"
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "listening":
		return "🔴" // Red - capturing
	case "found":
		return "🎵"
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error or unavailable
	default:
		return "🟢"
	}
}
