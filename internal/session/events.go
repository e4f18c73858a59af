package session

import (
	"time"

	"github.com/petems/mask-tray/internal/engine"
)

// ResultKind tags a poll result.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultFound
	ResultTimeout
)

// Result is one status poll outcome. SongID and Elapsed are only set for
// ResultFound. SessionID is the session that was active when the status was
// read; a result only applies to that session.
type Result struct {
	Kind      ResultKind
	SessionID string
	SongID    string
	Elapsed   time.Duration
}

// ResultFromStatus builds a Result from a decoded engine status. songID and
// elapsed are ignored unless status is StatusFound.
func ResultFromStatus(status engine.Status, songID string, elapsed time.Duration) Result {
	switch status {
	case engine.StatusFound:
		return Result{Kind: ResultFound, SongID: songID, Elapsed: elapsed}
	case engine.StatusTimeout:
		return Result{Kind: ResultTimeout}
	default:
		return Result{Kind: ResultNone}
	}
}

// ReasonKind says why a session ended.
type ReasonKind int

const (
	ReasonTimeout ReasonKind = iota
	ReasonFound
	ReasonCancelled
)

func (k ReasonKind) String() string {
	switch k {
	case ReasonFound:
		return "found"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "timeout"
	}
}

// StopReason is passed to Stop. The Found fields are only meaningful for
// ReasonFound.
type StopReason struct {
	Kind   ReasonKind
	SongID string
	Asset  string // empty when the song has no companion asset
	Offset time.Duration
}

// Timeout is the reason used for engine timeouts and user toggles.
func Timeout() StopReason { return StopReason{Kind: ReasonTimeout} }

// Cancelled is the reason used when the controller shuts down mid-session.
func Cancelled() StopReason { return StopReason{Kind: ReasonCancelled} }

// Found is the reason used when the engine identified songID.
func Found(songID, asset string, offset time.Duration) StopReason {
	return StopReason{Kind: ReasonFound, SongID: songID, Asset: asset, Offset: offset}
}

// EventKind identifies a DisplayEvent.
type EventKind string

const (
	EventStarted          EventKind = "started"
	EventStoppedTimeout   EventKind = "stopped_timeout"
	EventStoppedFound     EventKind = "stopped_found"
	EventStoppedCancelled EventKind = "stopped_cancelled"
	EventStartFailed      EventKind = "start_failed"
	EventUnavailable      EventKind = "unavailable"
)

// DisplayEvent is what presenters render. Presenters own no session state.
type DisplayEvent struct {
	Kind      EventKind
	SessionID string
	SongID    string
	Asset     string
	Offset    time.Duration
	Err       error
	At        time.Time
}

// Stopped reports whether the event ends a session.
func (e DisplayEvent) Stopped() bool {
	switch e.Kind {
	case EventStoppedTimeout, EventStoppedFound, EventStoppedCancelled:
		return true
	}
	return false
}

func stoppedEvent(sessionID string, r StopReason) DisplayEvent {
	ev := DisplayEvent{SessionID: sessionID, At: time.Now()}
	switch r.Kind {
	case ReasonFound:
		ev.Kind = EventStoppedFound
		ev.SongID = r.SongID
		ev.Asset = r.Asset
		ev.Offset = r.Offset
	case ReasonCancelled:
		ev.Kind = EventStoppedCancelled
	default:
		ev.Kind = EventStoppedTimeout
	}
	return ev
}

// Presenter renders session transitions. Display is called with the session
// monitor held, in transition order, so implementations must not call back
// into the Controller synchronously.
type Presenter interface {
	Display(ev DisplayEvent)
	TextChanged(text string)
}

// Presenters fans events out to several presenters in order.
type Presenters []Presenter

func (ps Presenters) Display(ev DisplayEvent) {
	for _, p := range ps {
		if p != nil {
			p.Display(ev)
		}
	}
}

func (ps Presenters) TextChanged(text string) {
	for _, p := range ps {
		if p != nil {
			p.TextChanged(text)
		}
	}
}
