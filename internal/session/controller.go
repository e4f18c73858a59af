package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petems/mask-tray/internal/engine"
	"github.com/rs/zerolog"
)

var (
	// ErrRecordingUnavailable is returned by Start when the capability probe
	// failed. It is permanent for the life of the controller.
	ErrRecordingUnavailable = errors.New("session: recording unavailable")
	// ErrResourceAllocation matches every StartError.
	ErrResourceAllocation = errors.New("session: resource allocation failed")
	ErrClosed             = errors.New("session: controller closed")
)

// StartError reports which allocation step failed during Start. Everything
// acquired before that step has already been released.
type StartError struct {
	Stage string
	Err   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Stage, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

func (e *StartError) Is(target error) bool { return target == ErrResourceAllocation }

// SessionConfig is fixed for the life of the controller.
type SessionConfig struct {
	SampleRate int
	FrameSize  int
	WorkDir    string
}

type Config struct {
	Engine     engine.Engine
	Presenter  Presenter // Optional - can be nil
	Assets     AssetResolver
	Session    SessionConfig
	VideoDelay time.Duration
	Logger     zerolog.Logger
}

// Controller is the session state machine. It is the only caller of the
// engine's lifecycle operations, and every transition happens under mu.
type Controller struct {
	eng      engine.Engine
	pres     Presenter
	dispatch Dispatcher
	cfg      SessionConfig
	log      zerolog.Logger

	supported bool

	mu        sync.Mutex
	active    bool
	sessionID string
	closed    bool
}

// New probes recording capability and, when supported, creates the engine.
// An unsupported device yields a controller whose Start is a permanent no-op.
func New(cfg Config) *Controller {
	c := &Controller{
		eng:  cfg.Engine,
		pres: cfg.Presenter,
		dispatch: Dispatcher{
			Assets:     cfg.Assets,
			VideoDelay: cfg.VideoDelay,
		},
		cfg: cfg.Session,
		log: cfg.Logger.With().Str("component", "session").Logger(),
	}

	c.supported = c.eng.ProbeRecording()
	if c.supported {
		if err := c.eng.CreateEngine(c.cfg.SampleRate, c.cfg.FrameSize); err != nil {
			c.log.Error().Err(err).Msg("Failed to create engine")
			c.supported = false
		}
	}

	if !c.supported {
		c.log.Warn().Msg("Recording unsupported, session control disabled")
		c.emit(DisplayEvent{Kind: EventUnavailable, Err: ErrRecordingUnavailable, At: time.Now()})
	}
	return c
}

// Supported reports the result of the capability probe.
func (c *Controller) Supported() bool {
	return c.supported
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SessionID returns the running session's ID, or "" when idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Start is the user toggle. Idle starts a session; Active stops the running
// one exactly as Stop(Timeout()) would.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case !c.supported:
		return ErrRecordingUnavailable
	case c.active:
		c.log.Info().Msg("Start while active, stopping session")
		c.stopLocked(Timeout())
		return nil
	}
	return c.startLocked()
}

func (c *Controller) startLocked() error {
	var unwind []func()
	rollback := func() {
		for i := len(unwind) - 1; i >= 0; i-- {
			unwind[i]()
		}
	}

	steps := []struct {
		stage   string
		acquire func() error
		release func()
	}{
		{"create player", c.eng.CreatePlayer, c.eng.DeletePlayer},
		{"create recorder", c.eng.CreateRecorder, c.eng.DeleteRecorder},
		{"init identify", func() error { return c.eng.InitIdentify(c.cfg.WorkDir) }, c.eng.DeleteIdentify},
		{"start play", c.eng.StartPlay, nil},
	}

	for _, step := range steps {
		if err := step.acquire(); err != nil {
			rollback()
			serr := &StartError{Stage: step.stage, Err: err}
			c.log.Error().Err(err).Str("stage", step.stage).Msg("Failed to start session")
			c.emit(DisplayEvent{Kind: EventStartFailed, Err: serr, At: time.Now()})
			return serr
		}
		if step.release != nil {
			unwind = append(unwind, step.release)
		}
	}

	c.active = true
	c.sessionID = uuid.NewString()
	c.log.Info().Str("session_id", c.sessionID).Msg("Session started")
	c.emit(DisplayEvent{Kind: EventStarted, SessionID: c.sessionID, At: time.Now()})
	return nil
}

// Stop ends the running session with reason. It is a no-op when idle and
// reports whether a teardown happened.
func (c *Controller) Stop(reason StopReason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(reason)
}

func (c *Controller) stopLocked(reason StopReason) bool {
	if !c.active {
		return false
	}

	// Idle before teardown so a concurrent stop observes the transition
	c.active = false
	id := c.sessionID
	c.sessionID = ""

	c.eng.StopPlay()
	c.eng.DeleteIdentify()
	c.eng.DeleteRecorder()
	c.eng.DeletePlayer()

	c.log.Info().
		Str("session_id", id).
		Stringer("reason", reason.Kind).
		Str("song", reason.SongID).
		Dur("offset", reason.Offset).
		Msg("Session stopped")
	c.emit(stoppedEvent(id, reason))
	return true
}

// HandleResult applies a poll result. Results arriving while idle, or read
// under an earlier session, are stale and dropped.
func (c *Controller) HandleResult(res Result) {
	reason, ok := c.dispatch.Reason(res)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || res.SessionID != c.sessionID {
		c.log.Debug().
			Int("kind", int(res.Kind)).
			Str("result_session", res.SessionID).
			Str("session_id", c.sessionID).
			Msg("Discarding stale result")
		return
	}
	c.stopLocked(reason)
}

// Close stops any running session and deletes the engine. The poller must
// be stopped first.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.stopLocked(Cancelled())
	if c.supported {
		c.eng.DeleteEngine()
	}
	c.closed = true
	return nil
}

func (c *Controller) emit(ev DisplayEvent) {
	if c.pres != nil {
		c.pres.Display(ev)
	}
}
