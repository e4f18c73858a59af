package main

import (
	"context"
	"fmt"
	"time"

	"github.com/petems/mask-tray/internal/app"
	"github.com/petems/mask-tray/internal/assets"
	"github.com/petems/mask-tray/internal/engine"
	"github.com/petems/mask-tray/internal/feed"
	"github.com/petems/mask-tray/internal/hotkey"
	"github.com/petems/mask-tray/internal/permissions"
	"github.com/petems/mask-tray/internal/recognize"
	"github.com/petems/mask-tray/internal/session"
)

const recognizerWait = 3 * time.Second

// newEngine returns the simulated or the PortAudio engine, and a device
// lister for the tray.
func newEngine(ctx context.Context) (engine.Engine, func() ([]string, error)) {
	if cfg.Simulate {
		log.Info().Msg("Using simulated engine")
		sim := engine.NewSim(engine.Script{
			Outcome: engine.StatusFound,
			SongID:  "siren_audio.flac",
			Elapsed: 3 * time.Second,
			After:   3 * time.Second,
		})
		return sim, func() ([]string, error) { return []string{"Simulated input"}, nil }
	}

	rec := recognize.New(cfg.Identify.RecognizerURL, log)
	// The service may still be starting alongside the tray
	if err := rec.WaitReady(ctx, recognizerWait); err != nil {
		log.Warn().Err(err).Str("url", cfg.Identify.RecognizerURL).Msg("Recognition service not reachable, sessions will time out")
	}

	pa := engine.NewPortAudio(engine.PortAudioOpts{
		InputDevice:   cfg.Audio.InputDevice,
		InputChannels: cfg.Audio.InputChannels,
		OutputDevice:  cfg.Audio.OutputDevice,
		Monitor:       cfg.Audio.Monitor,
		Identify: engine.IdentifyOpts{
			Timeout:    cfg.Identify.Timeout,
			ClipLength: cfg.Identify.ClipLength,
		},
	}, rec, log)
	return pa, engine.Devices
}

// buildApp wires the engine, asset table, feed and presenters into an App.
// The returned stop function shuts everything down in order.
func buildApp(ctx context.Context, withHotkey bool, presenters ...session.Presenter) (*app.App, func(), error) {
	if !cfg.Simulate {
		if err := permissions.EnsureMicrophone(log); err != nil {
			return nil, nil, err
		}
	}

	table, err := assets.LoadTable(cfg.Video.Table, cfg.Identify.WorkDir)
	if err != nil {
		return nil, nil, err
	}

	eng, devices := newEngine(ctx)

	ctx, cancel := context.WithCancel(ctx)
	var broadcaster *feed.Broadcaster
	if cfg.Feed.Addr != "" {
		b := feed.NewBroadcaster(log)
		broadcaster = b
		presenters = append(presenters, b)
		go func() {
			if err := feed.NewServer(b, log).ListenAndServe(ctx, cfg.Feed.Addr); err != nil {
				log.Error().Err(err).Msg("Feed server stopped")
			}
		}()
	}

	var hk hotkey.Manager
	if withHotkey {
		hk, err = hotkey.New()
		if err != nil {
			log.Warn().Err(err).Msg("Global hotkey unavailable")
			hk = nil
		} else {
			permissions.EnsureAccessibility(log)
		}
	}

	application := app.New(app.Config{
		Engine:         eng,
		Assets:         table,
		Session:        app.ResolveSession(cfg.Audio.SampleRate, cfg.Audio.FrameSize, cfg.Identify.WorkDir, eng, log),
		VideoDelay:     cfg.Video.Delay,
		TextInterval:   cfg.Poll.TextInterval,
		StatusInterval: cfg.Poll.StatusInterval,
		Presenters:     presenters,
		Hotkeys:        hk,
		Hotkey:         cfg.PlatformHotkey(),
		Devices:        devices,
		Logger:         log,
	})
	if err := application.Start(ctx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start: %w", err)
	}

	stop := func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		cancel()
		if broadcaster != nil {
			broadcaster.Close()
		}
	}
	return application, stop, nil
}
