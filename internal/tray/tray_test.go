package tray

import (
	"testing"
	"time"

	"github.com/petems/mask-tray/internal/session"
)

// TestApplyEvents walks the tray state through a session lifecycle.
func TestApplyEvents(t *testing.T) {
	s := state{status: "idle", available: true}

	s = apply(s, session.DisplayEvent{Kind: session.EventStarted})
	if !s.active || s.status != "listening" {
		t.Fatalf("after start: %+v", s)
	}

	s = apply(s, session.DisplayEvent{
		Kind:   session.EventStoppedFound,
		SongID: "siren_audio.flac",
		Asset:  "videos/siren_video.mp4",
		Offset: 3500 * time.Millisecond,
	})
	if s.active || s.status != "found" {
		t.Fatalf("after found: %+v", s)
	}
	if s.lastMatch != "siren_audio.flac → videos/siren_video.mp4 @ 3.5s" {
		t.Fatalf("unexpected last match %q", s.lastMatch)
	}

	s = apply(s, session.DisplayEvent{Kind: session.EventStarted})
	s = apply(s, session.DisplayEvent{Kind: session.EventStoppedTimeout})
	if s.active || s.status != "idle" {
		t.Fatalf("after timeout: %+v", s)
	}
	if s.lastMatch == "" {
		t.Fatal("last match should survive a timeout")
	}
}

func TestApplyUnavailableDisablesControl(t *testing.T) {
	s := apply(state{available: true}, session.DisplayEvent{Kind: session.EventUnavailable})
	if s.available || s.status != "error" {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestFormatMatchWithoutAsset(t *testing.T) {
	if got := formatMatch("other.flac", "", time.Second); got != "other.flac" {
		t.Fatalf("got %q", got)
	}
}

func TestLabelsAndEmoji(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"listening", "🔴"},
		{"found", "🎵"},
		{"idle", "🟢"},
		{"error", "⚪️"},
		{"unknown", "🟢"},
	}
	for _, tt := range tests {
		if got := emojiForStatus(tt.status); got != tt.want {
			t.Errorf("emojiForStatus(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}

	if startStopLabel(true) != "Stop" || startStopLabel(false) != "Start" {
		t.Error("unexpected start/stop labels")
	}
}
