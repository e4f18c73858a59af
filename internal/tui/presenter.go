package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

// Presenter forwards session events into a running program. Callers never
// block on the event loop. Display events are always delivered in order;
// consecutive text updates collapse into the latest one.
type Presenter struct {
	mu      sync.Mutex
	pending []tea.Msg
	wake    chan struct{}
	log     zerolog.Logger
}

func NewPresenter(log zerolog.Logger) *Presenter {
	return &Presenter{
		wake: make(chan struct{}, 1),
		log:  log.With().Str("component", "tui").Logger(),
	}
}

// Display implements session.Presenter.
func (p *Presenter) Display(ev session.DisplayEvent) {
	p.enqueue(displayMsg{ev: ev})
}

// TextChanged implements session.Presenter.
func (p *Presenter) TextChanged(text string) {
	p.enqueue(textMsg{text: text})
}

func (p *Presenter) enqueue(msg tea.Msg) {
	p.mu.Lock()
	if _, isText := msg.(textMsg); isText && len(p.pending) > 0 {
		if _, lastText := p.pending[len(p.pending)-1].(textMsg); lastText {
			p.pending[len(p.pending)-1] = msg
			p.mu.Unlock()
			return
		}
	}
	p.pending = append(p.pending, msg)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// drain takes every queued message, oldest first.
func (p *Presenter) drain() []tea.Msg {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.pending
	p.pending = nil
	return msgs
}

func (p *Presenter) pump(ctx context.Context, prog *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("UI pump stopped")
			return
		case <-p.wake:
			for _, msg := range p.drain() {
				prog.Send(msg)
			}
		}
	}
}

// Run shows the listen view until the user quits or ctx is cancelled.
func Run(ctx context.Context, toggle func(), pres *Presenter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(New(toggle), tea.WithAltScreen(), tea.WithContext(ctx))
	go pres.pump(ctx, prog)

	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
