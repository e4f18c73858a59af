package feed

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster is a session.Presenter that fans events out to websocket
// clients and keeps a snapshot for late joiners. It never blocks callers:
// a client that cannot keep up is disconnected.
type Broadcaster struct {
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool

	stateMu sync.Mutex
	state   Snapshot
}

func NewBroadcaster(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		log:     log.With().Str("component", "feed").Logger(),
		clients: make(map[*client]bool),
		state:   Snapshot{Available: true},
	}
}

// Display implements session.Presenter.
func (b *Broadcaster) Display(ev session.DisplayEvent) {
	payload := eventPayload(ev)

	b.stateMu.Lock()
	switch ev.Kind {
	case session.EventStarted:
		b.state.Active = true
		b.state.SessionID = ev.SessionID
	case session.EventUnavailable:
		b.state.Available = false
		b.state.Active = false
	default:
		b.state.Active = false
		b.state.SessionID = ""
	}
	b.state.LastEvent = &payload
	if ev.Kind == session.EventStoppedFound {
		b.state.LastMatch = &payload
	}
	b.stateMu.Unlock()

	b.broadcast(Message{Type: MsgEvent, Payload: payload})
}

// TextChanged implements session.Presenter.
func (b *Broadcaster) TextChanged(text string) {
	b.stateMu.Lock()
	b.state.Text = text
	b.stateMu.Unlock()

	b.broadcast(Message{Type: MsgText, Payload: TextPayload{Text: text}})
}

// Snapshot returns a copy of the current view.
func (b *Broadcaster) Snapshot() Snapshot {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.state
}

// AddClient registers conn and queues the current snapshot to it. After
// Close the connection is closed straight away and nil is returned.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	data, err := json.Marshal(Message{Type: MsgSnapshot, Payload: b.Snapshot()})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		conn.Close()
		return nil
	}
	c := newClient(conn)
	if err == nil {
		// The snapshot goes first so it precedes any broadcast
		select {
		case c.send <- data:
		default:
		}
	}
	b.clients[c] = true
	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client and refuses new ones. Websocket
// connections are hijacked, so http.Server.Shutdown does not reach them.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Msg("Broadcast marshal error")
		return
	}

	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	// Client can't keep up, disconnect it
	for _, c := range slow {
		b.log.Warn().Msg("Feed client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

func eventPayload(ev session.DisplayEvent) EventPayload {
	p := EventPayload{
		Kind:      string(ev.Kind),
		SessionID: ev.SessionID,
		SongID:    ev.SongID,
		Asset:     ev.Asset,
		OffsetMs:  ev.Offset.Milliseconds(),
		At:        ev.At,
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}
