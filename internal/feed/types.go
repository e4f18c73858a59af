package feed

import "time"

// Message types sent to websocket clients.
const (
	MsgSnapshot = "snapshot"
	MsgEvent    = "event"
	MsgText     = "text"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Snapshot is the current session view, sent on connect and served at
// /api/status.
type Snapshot struct {
	Available bool          `json:"available"`
	Active    bool          `json:"active"`
	SessionID string        `json:"session_id,omitempty"`
	Text      string        `json:"text"`
	LastEvent *EventPayload `json:"last_event,omitempty"`
	LastMatch *EventPayload `json:"last_match,omitempty"`
}

type EventPayload struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	SongID    string    `json:"song_id,omitempty"`
	Asset     string    `json:"asset,omitempty"`
	OffsetMs  int64     `json:"offset_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type TextPayload struct {
	Text string `json:"text"`
}
