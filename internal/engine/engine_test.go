package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{0, StatusNone},
		{1, StatusFound},
		{2, StatusTimeout},
		{3, StatusNone},
		{-1, StatusNone},
	}

	for _, tt := range tests {
		if got := DecodeStatus(tt.code); got != tt.want {
			t.Errorf("DecodeStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSimMaskTextLifecycle(t *testing.T) {
	sim := NewSim(Script{})

	if got := sim.MaskText(); got != TextIdle {
		t.Fatalf("expected %q before any session, got %q", TextIdle, got)
	}

	if err := sim.CreateEngine(48000, 4800); err != nil {
		t.Fatalf("CreateEngine: %v", err)
	}
	if err := sim.CreatePlayer(); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	if err := sim.CreateRecorder(); err != nil {
		t.Fatalf("CreateRecorder: %v", err)
	}
	if err := sim.InitIdentify(t.TempDir()); err != nil {
		t.Fatalf("InitIdentify: %v", err)
	}
	if err := sim.StartPlay(); err != nil {
		t.Fatalf("StartPlay: %v", err)
	}

	if got := sim.MaskText(); got != TextListening {
		t.Fatalf("expected %q while listening, got %q", TextListening, got)
	}
	if got := sim.MaskStatus(); got != StatusNone {
		t.Fatalf("expected no status while listening, got %v", got)
	}

	sim.Report(StatusFound, "siren_audio.flac", 1200*time.Millisecond)

	if got := sim.MaskText(); got != "siren_audio.flac" {
		t.Fatalf("expected song id as text, got %q", got)
	}
	if got := sim.MaskStatus(); got != StatusFound {
		t.Fatalf("expected found, got %v", got)
	}
	if got := sim.MaskTime(); got != 1200 {
		t.Fatalf("expected elapsed 1200, got %d", got)
	}

	// A later timeout must not override the match
	sim.Report(StatusTimeout, "", 0)
	if got := sim.MaskStatus(); got != StatusFound {
		t.Fatalf("expected found to stick, got %v", got)
	}

	sim.StopPlay()
	sim.DeleteIdentify()

	// Result outlives teardown until the next session
	if got := sim.MaskStatus(); got != StatusFound {
		t.Fatalf("expected found after teardown, got %v", got)
	}

	if err := sim.InitIdentify(t.TempDir()); err != nil {
		t.Fatalf("InitIdentify: %v", err)
	}
	if got := sim.MaskStatus(); got != StatusNone {
		t.Fatalf("expected reset status for new session, got %v", got)
	}
}

func TestSimRecorderRequiresPlayer(t *testing.T) {
	sim := NewSim(Script{})
	_ = sim.CreateEngine(48000, 4800)

	if err := sim.CreateRecorder(); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("expected ErrNoPlayer, got %v", err)
	}
}

func TestSimScriptedOutcome(t *testing.T) {
	sim := NewSim(Script{Outcome: StatusTimeout, After: 10 * time.Millisecond})
	_ = sim.CreateEngine(48000, 4800)
	_ = sim.CreatePlayer()
	_ = sim.CreateRecorder()
	_ = sim.InitIdentify(t.TempDir())
	if err := sim.StartPlay(); err != nil {
		t.Fatalf("StartPlay: %v", err)
	}

	var got Status
	for i := 0; i < 100; i++ {
		if got = sim.MaskStatus(); got != StatusNone {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got != StatusTimeout {
		t.Fatalf("expected scripted timeout, got %v", got)
	}
	if text := sim.MaskText(); text != TextTimedOut {
		t.Fatalf("expected %q, got %q", TextTimedOut, text)
	}
}

type fakeMatcher struct {
	calls   atomic.Int32
	matchOn int32
	match   Match
}

func (f *fakeMatcher) Match(ctx context.Context, samples []float32, sampleRate int) (Match, bool, error) {
	n := f.calls.Add(1)
	if f.matchOn > 0 && n >= f.matchOn {
		return f.match, true, nil
	}
	return Match{}, false, nil
}

func feedUntilDone(t *testing.T, id *identifier, frame []float32, max int) {
	t.Helper()
	for i := 0; i < max; i++ {
		select {
		case id.frames <- frame:
		case <-id.done:
			return
		case <-time.After(time.Second):
			t.Fatal("identifier stalled")
		}
	}
}

func TestIdentifierFindsMatch(t *testing.T) {
	var mask maskState
	mask.reset()
	matcher := &fakeMatcher{matchOn: 2, match: Match{SongID: "fancy_audio.flac", Position: 3 * time.Second}}

	id := newIdentifier(matcher, &mask, zerolog.Nop(), 1000, IdentifyOpts{
		Timeout:    time.Minute,
		ClipLength: 100 * time.Millisecond,
	})
	defer id.stop()

	feedUntilDone(t, id, make([]float32, 50), 100)

	if got := mask.status(); got != StatusFound {
		t.Fatalf("expected found, got %v", got)
	}
	if got := mask.time(); got != 3000 {
		t.Fatalf("expected position 3000ms, got %d", got)
	}
	if got := matcher.calls.Load(); got != 2 {
		t.Fatalf("expected 2 match attempts, got %d", got)
	}
}

func TestIdentifierTimesOut(t *testing.T) {
	var mask maskState
	mask.reset()

	id := newIdentifier(&fakeMatcher{}, &mask, zerolog.Nop(), 1000, IdentifyOpts{
		Timeout:    time.Second,
		ClipLength: 200 * time.Millisecond,
	})
	defer id.stop()

	// 100ms frames, timeout after the tenth
	feedUntilDone(t, id, make([]float32, 100), 50)

	if got := mask.status(); got != StatusTimeout {
		t.Fatalf("expected timeout, got %v", got)
	}
	if got := mask.text(); got != TextTimedOut {
		t.Fatalf("expected %q, got %q", TextTimedOut, got)
	}
}
