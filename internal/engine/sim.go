package engine

import (
	"sync"
	"time"
)

// Script drives a Sim engine.
type Script struct {
	Unsupported bool

	// Failures injected into the matching lifecycle call.
	FailCreate   error
	FailPlayer   error
	FailRecorder error
	FailIdentify error
	FailStart    error

	// OpenDelay stalls CreatePlayer the way opening real streams does.
	OpenDelay time.Duration

	// Outcome is reported After the session starts playing. StatusNone
	// leaves the session listening until Report is called.
	Outcome Status
	SongID  string
	Elapsed time.Duration
	After   time.Duration
}

// Sim is a scripted Engine with no audio hardware behind it. It records
// every lifecycle call so callers can check ordering.
type Sim struct {
	script Script
	mask   maskState

	mu       sync.Mutex
	created  bool
	player   bool
	recorder bool
	identify bool
	playing  bool
	timer    *time.Timer
	calls    []string
}

// NewSim returns a Sim engine following script.
func NewSim(script Script) *Sim {
	return &Sim{script: script}
}

func (s *Sim) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *Sim) ProbeRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ProbeRecording")
	return !s.script.Unsupported
}

func (s *Sim) NativeParams() (int, int, error) {
	return 48000, 4800, nil
}

func (s *Sim) CreateEngine(sampleRate, frameSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateEngine")
	if s.script.FailCreate != nil {
		return s.script.FailCreate
	}
	s.created = true
	return nil
}

func (s *Sim) DeleteEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteEngine")
	s.created = false
}

func (s *Sim) CreatePlayer() error {
	if s.script.OpenDelay > 0 {
		time.Sleep(s.script.OpenDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreatePlayer")
	if !s.created {
		return ErrNotCreated
	}
	if s.script.FailPlayer != nil {
		return s.script.FailPlayer
	}
	s.player = true
	return nil
}

func (s *Sim) DeletePlayer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeletePlayer")
	s.player = false
}

func (s *Sim) CreateRecorder() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateRecorder")
	if !s.player {
		return ErrNoPlayer
	}
	if s.script.FailRecorder != nil {
		return s.script.FailRecorder
	}
	s.recorder = true
	return nil
}

func (s *Sim) DeleteRecorder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteRecorder")
	s.recorder = false
}

func (s *Sim) InitIdentify(workDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("InitIdentify")
	if s.script.FailIdentify != nil {
		return s.script.FailIdentify
	}
	s.identify = true
	s.mask.reset()
	return nil
}

func (s *Sim) DeleteIdentify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteIdentify")
	s.identify = false
	s.mask.finish()
}

func (s *Sim) StartPlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StartPlay")
	switch {
	case !s.player:
		return ErrNoPlayer
	case !s.recorder:
		return ErrNoRecorder
	case !s.identify:
		return ErrNotIdentifying
	case s.script.FailStart != nil:
		return s.script.FailStart
	}
	s.playing = true
	if s.script.Outcome != StatusNone {
		outcome, song, elapsed := s.script.Outcome, s.script.SongID, s.script.Elapsed
		s.timer = time.AfterFunc(s.script.After, func() {
			s.Report(outcome, song, elapsed)
		})
	}
	return nil
}

func (s *Sim) StopPlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StopPlay")
	s.playing = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Report resolves the current identification as if the engine had detected
// outcome. It has no effect once the session already resolved or was torn
// down.
func (s *Sim) Report(outcome Status, songID string, elapsed time.Duration) {
	switch outcome {
	case StatusFound:
		s.mask.setFound(songID, int(elapsed.Milliseconds()))
	case StatusTimeout:
		s.mask.setTimeout()
	}
}

func (s *Sim) MaskText() string   { return s.mask.text() }
func (s *Sim) MaskStatus() Status { return s.mask.status() }
func (s *Sim) MaskTime() int      { return s.mask.time() }

// Calls returns the lifecycle calls made so far, in order.
func (s *Sim) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls clears the call log.
func (s *Sim) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Live reports which per-session resources are currently held.
func (s *Sim) Live() (player, recorder, identify bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player, s.recorder, s.identify
}
