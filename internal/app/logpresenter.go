package app

import (
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

// LogPresenter writes display events to the log. It is always installed, so
// headless runs still leave a record of every session.
type LogPresenter struct {
	log zerolog.Logger
}

func NewLogPresenter(log zerolog.Logger) *LogPresenter {
	return &LogPresenter{log: log.With().Str("component", "display").Logger()}
}

func (p *LogPresenter) Display(ev session.DisplayEvent) {
	var e *zerolog.Event
	switch ev.Kind {
	case session.EventStartFailed, session.EventUnavailable:
		e = p.log.Warn().Err(ev.Err)
	default:
		e = p.log.Info()
	}

	e = e.Str("event", string(ev.Kind))
	if ev.SessionID != "" {
		e = e.Str("session_id", ev.SessionID)
	}
	if ev.Kind == session.EventStoppedFound {
		e = e.Str("song", ev.SongID).Str("asset", ev.Asset).Dur("offset", ev.Offset)
	}
	e.Msg("Display")
}

func (p *LogPresenter) TextChanged(text string) {
	p.log.Debug().Str("text", text).Msg("Text changed")
}
