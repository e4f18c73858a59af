package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestToggleRunsOffEventLoop(t *testing.T) {
	calls := 0
	m := New(func() { calls++ })

	m, cmd := press(m, " ")
	if cmd == nil {
		t.Fatal("expected a command for toggle")
	}
	if calls != 0 {
		t.Fatal("toggle must not run inside Update")
	}
	if _, ok := cmd().(toggledMsg); !ok {
		t.Fatal("expected toggledMsg from command")
	}
	if calls != 1 {
		t.Fatalf("expected one toggle, got %d", calls)
	}
	_ = m
}

func TestToggleIgnoredWhenUnavailable(t *testing.T) {
	m := New(func() { t.Fatal("toggle should not be called") })
	m = send(m, displayMsg{ev: session.DisplayEvent{Kind: session.EventUnavailable, Err: session.ErrRecordingUnavailable}})

	_, cmd := press(m, "s")
	if cmd != nil {
		t.Fatal("expected no command while unavailable")
	}
	if !strings.Contains(m.View(), "UNAVAILABLE") {
		t.Fatal("view should show unavailable badge")
	}
}

func TestSessionLifecycleView(t *testing.T) {
	m := New(nil)
	m = send(m, textMsg{text: "Press start to identify"})
	if !strings.Contains(m.View(), "Press start to identify") || !strings.Contains(m.View(), "IDLE") {
		t.Fatalf("unexpected idle view:\n%s", m.View())
	}

	m = send(m, displayMsg{ev: session.DisplayEvent{Kind: session.EventStarted}})
	m = send(m, textMsg{text: "Listening..."})
	if !m.active || !strings.Contains(m.View(), "LISTENING") {
		t.Fatalf("expected listening view:\n%s", m.View())
	}

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m = send(m, displayMsg{ev: session.DisplayEvent{
		Kind:   session.EventStoppedFound,
		SongID: "hey_audio.flac",
		Asset:  "videos/hey_video.mp4",
		Offset: 4 * time.Second,
		At:     at,
	}})
	if m.active {
		t.Fatal("expected idle after found")
	}
	view := m.View()
	if !strings.Contains(view, "FOUND") || !strings.Contains(view, "12:00:00  found hey_audio.flac → videos/hey_video.mp4 @ 4s") {
		t.Fatalf("unexpected found view:\n%s", view)
	}

	m, _ = press(m, "c")
	if len(m.history) != 0 {
		t.Fatal("history should be cleared")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	m := New(nil)
	for i := 0; i < maxHistory+3; i++ {
		m = send(m, displayMsg{ev: session.DisplayEvent{Kind: session.EventStoppedTimeout}})
	}
	if len(m.history) != maxHistory {
		t.Fatalf("expected %d history lines, got %d", maxHistory, len(m.history))
	}
}

func TestStartFailedShowsError(t *testing.T) {
	m := New(nil)
	err := &session.StartError{Stage: "create recorder", Err: errors.New("device busy")}
	m = send(m, displayMsg{ev: session.DisplayEvent{Kind: session.EventStartFailed, Err: err}})
	if !strings.Contains(m.View(), "device busy") {
		t.Fatalf("expected error in view:\n%s", m.View())
	}
}

func TestQuit(t *testing.T) {
	_, cmd := press(New(nil), "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestPresenterQueuesInOrder(t *testing.T) {
	p := NewPresenter(zerolog.Nop())
	p.TextChanged("a")
	p.Display(session.DisplayEvent{Kind: session.EventStarted})

	msgs := p.drain()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if tm, ok := msgs[0].(textMsg); !ok || tm.text != "a" {
		t.Fatalf("unexpected first message %#v", msgs[0])
	}
	if _, ok := msgs[1].(displayMsg); !ok {
		t.Fatal("expected display message second")
	}
	if len(p.drain()) != 0 {
		t.Fatal("drain should empty the queue")
	}
}

func TestPresenterKeepsDisplayEventsUnderLoad(t *testing.T) {
	p := NewPresenter(zerolog.Nop())
	for i := 0; i < 200; i++ {
		p.TextChanged(fmt.Sprintf("text %d", i))
		p.Display(session.DisplayEvent{Kind: session.EventStarted})
		p.TextChanged(fmt.Sprintf("song %d", i))
		p.TextChanged(fmt.Sprintf("again %d", i))
		p.Display(session.DisplayEvent{Kind: session.EventStoppedFound})
	}

	msgs := p.drain()
	var displays, texts int
	for _, msg := range msgs {
		switch msg.(type) {
		case displayMsg:
			displays++
		case textMsg:
			texts++
		}
	}
	if displays != 400 {
		t.Fatalf("expected every display event, got %d", displays)
	}
	// Consecutive text updates collapse to one per gap
	if texts != 400 {
		t.Fatalf("expected 400 text messages, got %d", texts)
	}
	if tm := msgs[2].(textMsg); tm.text != "again 0" {
		t.Fatalf("expected latest text to win, got %q", tm.text)
	}
	if _, ok := msgs[len(msgs)-1].(displayMsg); !ok {
		t.Fatal("order not preserved")
	}
}
