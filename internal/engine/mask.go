package engine

import "sync"

// maskState holds what the Mask* readers report. A found or timed-out
// result outlives DeleteIdentify and is only cleared by the next
// InitIdentify, so readers keep seeing the last outcome after teardown.
type maskState struct {
	mu        sync.Mutex
	started   bool
	done      bool
	found     bool
	timedOut  bool
	song      string
	elapsedMs int
}

func (m *maskState) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	m.done = false
	m.found = false
	m.timedOut = false
	m.song = ""
	m.elapsedMs = 0
}

func (m *maskState) finish() {
	m.mu.Lock()
	m.done = true
	m.mu.Unlock()
}

// setFound records a match unless the session already resolved.
func (m *maskState) setFound(song string, elapsedMs int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done || m.found || m.timedOut {
		return false
	}
	m.found = true
	m.song = song
	m.elapsedMs = elapsedMs
	return true
}

func (m *maskState) setTimeout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done || m.found || m.timedOut {
		return false
	}
	m.timedOut = true
	return true
}

func (m *maskState) text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.found:
		return m.song
	case m.timedOut:
		return TextTimedOut
	case !m.started || m.done:
		return TextIdle
	default:
		return TextListening
	}
}

func (m *maskState) status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.found:
		return StatusFound
	case m.timedOut:
		return StatusTimeout
	default:
		return StatusNone
	}
}

func (m *maskState) time() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsedMs
}
