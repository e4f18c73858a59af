package poller

import (
	"context"
	"sync"
	"time"

	"github.com/petems/mask-tray/internal/engine"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

const (
	DefaultTextInterval   = 250 * time.Millisecond
	DefaultStatusInterval = 10 * time.Millisecond
)

// Reader is the read-only slice of the engine the poller needs.
type Reader interface {
	MaskText() string
	MaskStatus() engine.Status
	MaskTime() int
}

// ResultHandler receives terminal poll results. SessionID is read before the
// engine status so each result carries the session it was observed under;
// the handler drops results whose session is no longer the active one.
type ResultHandler interface {
	SessionID() string
	HandleResult(res session.Result)
}

// TextSink receives engine text changes.
type TextSink interface {
	TextChanged(text string)
}

type Config struct {
	Engine         Reader
	Results        ResultHandler
	Text           TextSink
	TextInterval   time.Duration
	StatusInterval time.Duration
	Logger         zerolog.Logger
}

// Poller runs the text and status cycles. Each tick fires its cycle on a new
// goroutine without waiting for the previous one, so invocations of the same
// cycle may overlap.
type Poller struct {
	eng     Reader
	results ResultHandler
	text    TextSink
	textInt time.Duration
	statInt time.Duration
	log     zerolog.Logger

	textMu   sync.Mutex
	lastText string
	haveText bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	loops    sync.WaitGroup
	inflight conc.WaitGroup
}

func New(cfg Config) *Poller {
	if cfg.TextInterval <= 0 {
		cfg.TextInterval = DefaultTextInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	return &Poller{
		eng:     cfg.Engine,
		results: cfg.Results,
		text:    cfg.Text,
		textInt: cfg.TextInterval,
		statInt: cfg.StatusInterval,
		log:     cfg.Logger.With().Str("component", "poller").Logger(),
	}
}

// Start launches both cycles. They run until ctx is cancelled or Stop is
// called. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.loops.Add(2)
	go p.loop(ctx, p.textInt, p.textCycle)
	go p.loop(ctx, p.statInt, p.statusCycle)

	p.log.Debug().Dur("text_interval", p.textInt).Dur("status_interval", p.statInt).Msg("Poller started")
}

// Stop cancels both cycles and waits for in-flight invocations to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.loops.Wait()

	if r := p.inflight.WaitAndRecover(); r != nil {
		p.log.Error().Str("panic", r.String()).Msg("Poll cycle panicked")
	}
}

func (p *Poller) loop(ctx context.Context, every time.Duration, cycle func()) {
	defer p.loops.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	p.inflight.Go(cycle)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.inflight.Go(cycle)
		}
	}
}

func (p *Poller) textCycle() {
	// Read and deliver under one lock so overlapping cycles cannot reorder
	p.textMu.Lock()
	defer p.textMu.Unlock()

	text := p.eng.MaskText()
	if p.haveText && text == p.lastText {
		return
	}
	p.lastText = text
	p.haveText = true
	if p.text != nil {
		p.text.TextChanged(text)
	}
}

func (p *Poller) statusCycle() {
	if p.results == nil {
		return
	}
	// Idle: the engine may still report the last session's outcome
	id := p.results.SessionID()
	if id == "" {
		return
	}
	res := p.poll()
	if res.Kind == session.ResultNone {
		return
	}
	res.SessionID = id
	p.results.HandleResult(res)
}

func (p *Poller) poll() session.Result {
	status := p.eng.MaskStatus()
	if status != engine.StatusFound {
		return session.ResultFromStatus(status, "", 0)
	}
	song := p.eng.MaskText()
	elapsed := time.Duration(p.eng.MaskTime()) * time.Millisecond
	return session.ResultFromStatus(status, song, elapsed)
}
