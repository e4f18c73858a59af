package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/mask-tray/internal/engine"
	"github.com/petems/mask-tray/internal/hotkey"
	"github.com/petems/mask-tray/internal/poller"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

type Config struct {
	Engine     engine.Engine
	Assets     session.AssetResolver
	Session    session.SessionConfig
	VideoDelay time.Duration

	TextInterval   time.Duration
	StatusInterval time.Duration

	Presenters []session.Presenter
	Hotkeys    hotkey.Manager // Optional - can be nil
	Hotkey     string
	Devices    func() ([]string, error) // Optional - can be nil
	Logger     zerolog.Logger
}

// App wires the session controller, the status poller, presenters and the
// global hotkey together.
type App struct {
	ctrl    *session.Controller
	poll    *poller.Poller
	hk      hotkey.Manager
	accel   string
	devices func() ([]string, error)
	log     zerolog.Logger

	mu       sync.Mutex
	started  bool
	shutdown bool

	held atomic.Bool // hotkey down since the last press
}

func New(cfg Config) *App {
	log := cfg.Logger
	pres := session.Presenters(append([]session.Presenter{NewLogPresenter(log)}, cfg.Presenters...))

	ctrl := session.New(session.Config{
		Engine:     cfg.Engine,
		Presenter:  pres,
		Assets:     cfg.Assets,
		Session:    cfg.Session,
		VideoDelay: cfg.VideoDelay,
		Logger:     log,
	})

	poll := poller.New(poller.Config{
		Engine:         cfg.Engine,
		Results:        ctrl,
		Text:           pres,
		TextInterval:   cfg.TextInterval,
		StatusInterval: cfg.StatusInterval,
		Logger:         log,
	})

	return &App{
		ctrl:    ctrl,
		poll:    poll,
		hk:      cfg.Hotkeys,
		accel:   cfg.Hotkey,
		devices: cfg.Devices,
		log:     log,
	}
}

// Start registers the hotkey and starts polling. It does not block.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shutdown {
		return session.ErrClosed
	}
	if a.started {
		return nil
	}

	if a.hk != nil && a.accel != "" {
		if err := a.hk.Register(a.accel, a.OnHotkey); err != nil {
			// The tray and terminal UI still work without it
			a.log.Error().Err(err).Str("hotkey", a.accel).Msg("Failed to register hotkey")
		} else {
			a.log.Info().Str("hotkey", a.accel).Msg("Hotkey registered")
		}
	}

	a.poll.Start(ctx)
	a.started = true
	return nil
}

// OnHotkey toggles the session on key press. Auto-repeated presses while the
// key is held are ignored until it is released.
func (a *App) OnHotkey(pressed bool) {
	if !pressed {
		a.held.Store(false)
		return
	}
	if a.held.Swap(true) {
		return
	}
	a.Toggle()
}

// Toggle starts a session when idle and stops it when active.
func (a *App) Toggle() {
	err := a.ctrl.Start()
	switch {
	case err == nil:
	case errors.Is(err, session.ErrRecordingUnavailable):
		a.log.Warn().Msg("Recording unavailable, ignoring toggle")
	case errors.Is(err, session.ErrClosed):
		a.log.Debug().Msg("Toggle after shutdown")
	default:
		// Already logged and displayed by the controller
	}
}

// Active reports whether a session is running.
func (a *App) Active() bool {
	return a.ctrl.Active()
}

// Supported reports whether recording is available on this device.
func (a *App) Supported() bool {
	return a.ctrl.Supported()
}

// Devices lists capture devices for the tray menu.
func (a *App) Devices() ([]string, error) {
	if a.devices == nil {
		return nil, nil
	}
	return a.devices()
}

// Shutdown stops polling, stops any running session and releases the
// engine, in that order. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	a.mu.Unlock()

	if a.hk != nil {
		if a.accel != "" {
			a.hk.Unregister(a.accel)
		}
		a.hk.Close()
	}

	done := make(chan struct{})
	go func() {
		a.poll.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn().Msg("Timed out waiting for poller")
	}

	return a.ctrl.Close()
}
