package poller

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petems/mask-tray/internal/assets"
	"github.com/petems/mask-tray/internal/engine"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

type fakeReader struct {
	mu     sync.Mutex
	text   string
	status engine.Status
	time   int
	reads  atomic.Int32
}

func (f *fakeReader) set(text string, status engine.Status, ms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.status, f.time = text, status, ms
}

func (f *fakeReader) MaskText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func (f *fakeReader) MaskStatus() engine.Status {
	f.reads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeReader) MaskTime() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

type textRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *textRecorder) TextChanged(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *textRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type resultRecorder struct {
	mu      sync.Mutex
	id      string
	results []session.Result
}

func (r *resultRecorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *resultRecorder) HandleResult(res session.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *resultRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ { // Poll for 2 seconds
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTextCycleDeliversOnlyChanges(t *testing.T) {
	reader := &fakeReader{}
	reader.set(engine.TextIdle, engine.StatusNone, 0)
	texts := &textRecorder{}

	p := New(Config{
		Engine:         reader,
		Text:           texts,
		TextInterval:   time.Millisecond,
		StatusInterval: time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return len(texts.snapshot()) == 1 })
	time.Sleep(20 * time.Millisecond)

	reader.set(engine.TextListening, engine.StatusNone, 0)
	waitFor(t, func() bool { return len(texts.snapshot()) == 2 })
	time.Sleep(20 * time.Millisecond)

	got := texts.snapshot()
	if len(got) != 2 || got[0] != engine.TextIdle || got[1] != engine.TextListening {
		t.Fatalf("unexpected text deliveries: %v", got)
	}
}

// seqReader reports a new text on every read, slowly, so text cycles overlap.
type seqReader struct {
	fakeReader
	n atomic.Int64
}

func (s *seqReader) MaskText() string {
	n := s.n.Add(1)
	time.Sleep(time.Duration(n%3) * 200 * time.Microsecond)
	return strconv.FormatInt(n, 10)
}

func TestOverlappingTextCyclesDeliverInReadOrder(t *testing.T) {
	reader := &seqReader{}
	texts := &textRecorder{}

	p := New(Config{
		Engine:         reader,
		Text:           texts,
		TextInterval:   100 * time.Microsecond,
		StatusInterval: time.Hour,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())
	waitFor(t, func() bool { return len(texts.snapshot()) >= 50 })
	p.Stop()

	var last int64
	for _, text := range texts.snapshot() {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			t.Fatalf("unexpected text %q", text)
		}
		if n <= last {
			t.Fatalf("text %d delivered after %d", n, last)
		}
		last = n
	}
}

func TestStatusCycleIgnoresNone(t *testing.T) {
	reader := &fakeReader{}
	results := &resultRecorder{id: "s1"}

	p := New(Config{
		Engine:         reader,
		Results:        results,
		TextInterval:   time.Hour,
		StatusInterval: time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())
	waitFor(t, func() bool { return reader.reads.Load() > 10 })
	p.Stop()

	if n := results.count(); n != 0 {
		t.Fatalf("expected no results for status none, got %d", n)
	}
}

func TestStatusCycleBuildsFoundResult(t *testing.T) {
	reader := &fakeReader{}
	reader.set("chocolate_audio.flac", engine.StatusFound, 1000)
	results := &resultRecorder{id: "s1"}

	p := New(Config{
		Engine:         reader,
		Results:        results,
		TextInterval:   time.Hour,
		StatusInterval: time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())
	waitFor(t, func() bool { return results.count() > 0 })
	p.Stop()

	results.mu.Lock()
	defer results.mu.Unlock()
	want := session.Result{Kind: session.ResultFound, SessionID: "s1", SongID: "chocolate_audio.flac", Elapsed: time.Second}
	if results.results[0] != want {
		t.Fatalf("got %+v, want %+v", results.results[0], want)
	}
}

func TestStopWaitsAndIsIdempotent(t *testing.T) {
	reader := &fakeReader{}
	p := New(Config{Engine: reader, Results: &resultRecorder{id: "s1"}, Logger: zerolog.Nop()})

	p.Stop() // never started

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Start(ctx) // already running
	waitFor(t, func() bool { return reader.reads.Load() > 0 })
	cancel()
	p.Stop()

	reads := reader.reads.Load()
	time.Sleep(30 * time.Millisecond)
	if reader.reads.Load() != reads {
		t.Fatal("cycles kept running after Stop")
	}
}

type countingPresenter struct {
	mu     sync.Mutex
	counts map[session.EventKind]int
}

func (c *countingPresenter) Display(ev session.DisplayEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[session.EventKind]int)
	}
	c.counts[ev.Kind]++
}

func (c *countingPresenter) TextChanged(string) {}

func TestStatusCycleSkipsWhileIdle(t *testing.T) {
	reader := &fakeReader{}
	reader.set("siren_audio.flac", engine.StatusFound, 1000)
	results := &resultRecorder{}

	p := New(Config{
		Engine:         reader,
		Results:        results,
		TextInterval:   time.Hour,
		StatusInterval: time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	if n := results.count(); n != 0 {
		t.Fatalf("expected no results while idle, got %d", n)
	}
	if n := reader.reads.Load(); n != 0 {
		t.Fatalf("engine status read %d times while idle", n)
	}
}

func (c *countingPresenter) count(kind session.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

func newSimController(t *testing.T, sim *engine.Sim, pres session.Presenter) *session.Controller {
	t.Helper()
	root := t.TempDir()
	return session.New(session.Config{
		Engine:     sim,
		Presenter:  pres,
		Assets:     assets.NewTable(root, assets.DefaultTable),
		Session:    session.SessionConfig{SampleRate: 48000, FrameSize: 4800, WorkDir: root},
		VideoDelay: session.DefaultVideoDelay,
		Logger:     zerolog.Nop(),
	})
}

func TestOverlappingFoundPollsTearDownOnce(t *testing.T) {
	sim := engine.NewSim(engine.Script{})
	pres := &countingPresenter{}
	ctrl := newSimController(t, sim, pres)
	defer ctrl.Close()

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p := New(Config{
		Engine:         sim,
		Results:        ctrl,
		TextInterval:   time.Hour,
		StatusInterval: 100 * time.Microsecond,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())

	sim.Report(engine.StatusFound, "siren_audio.flac", time.Second)
	waitFor(t, func() bool { return !ctrl.Active() })

	// The engine keeps reporting found after teardown; these polls are stale
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	if n := pres.count(session.EventStoppedFound); n != 1 {
		t.Fatalf("expected exactly one found event, got %d", n)
	}
	player, recorder, identify := sim.Live()
	if player || recorder || identify {
		t.Fatal("resources still live after found")
	}
}

func TestRestartAfterOutcomeKeepsNewSession(t *testing.T) {
	for _, outcome := range []engine.Status{engine.StatusFound, engine.StatusTimeout} {
		t.Run(outcome.String(), func(t *testing.T) {
			// Opening streams takes several status periods
			sim := engine.NewSim(engine.Script{OpenDelay: 50 * time.Millisecond})
			pres := &countingPresenter{}
			ctrl := newSimController(t, sim, pres)
			defer ctrl.Close()

			p := New(Config{
				Engine:         sim,
				Results:        ctrl,
				TextInterval:   time.Hour,
				StatusInterval: time.Millisecond,
				Logger:         zerolog.Nop(),
			})
			p.Start(context.Background())
			defer p.Stop()

			if err := ctrl.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			sim.Report(outcome, "siren_audio.flac", time.Second)
			waitFor(t, func() bool { return !ctrl.Active() })

			if err := ctrl.Start(); err != nil {
				t.Fatalf("second Start: %v", err)
			}
			time.Sleep(100 * time.Millisecond)

			if !ctrl.Active() {
				t.Fatal("new session was stopped by the previous session's outcome")
			}
			stops := pres.count(session.EventStoppedFound) + pres.count(session.EventStoppedTimeout)
			if stops != 1 {
				t.Fatalf("expected one stop event, got %d", stops)
			}
			if n := pres.count(session.EventStarted); n != 2 {
				t.Fatalf("expected two started events, got %d", n)
			}
		})
	}
}

func TestTimeoutPollStopsSession(t *testing.T) {
	sim := engine.NewSim(engine.Script{Outcome: engine.StatusTimeout, After: 5 * time.Millisecond})
	pres := &countingPresenter{}
	ctrl := newSimController(t, sim, pres)
	defer ctrl.Close()

	p := New(Config{
		Engine:         sim,
		Results:        ctrl,
		TextInterval:   time.Hour,
		StatusInterval: time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	p.Start(context.Background())
	defer p.Stop()

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return pres.count(session.EventStoppedTimeout) == 1 })

	if ctrl.Active() {
		t.Fatal("session should be idle after timeout")
	}
	if n := pres.count(session.EventStoppedFound); n != 0 {
		t.Fatalf("no found events expected, got %d", n)
	}
}
