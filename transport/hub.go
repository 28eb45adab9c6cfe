// Package transport delivers turn output to clients. Hub fans messages out to
// in-process subscribers of a session room; Console renders a room on a
// terminal.
package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/oron-mozes/creo-sub000/core"
)

var (
	// ErrNoSubscribers is returned when a room has no listener.
	ErrNoSubscribers = errors.New("transport: no subscribers")
	// ErrSlowConsumer is returned when a subscriber buffer is full and the
	// message was dropped for it.
	ErrSlowConsumer = errors.New("transport: slow consumer")
)

// Kind distinguishes chunk and completion messages.
type Kind string

const (
	// KindPartial is a streamed chunk.
	KindPartial Kind = "partial"
	// KindFinal is the single terminal message of a turn.
	KindFinal Kind = "final"
)

// Message is what subscribers receive.
type Message struct {
	Kind      Kind            `json:"kind"`
	SessionID string          `json:"session_id"`
	MessageID string          `json:"message_id"`
	Text      string          `json:"text"`
	Flags     core.FinalFlags `json:"flags"`
	At        time.Time       `json:"at"`
}

// HubOptions configures a Hub.
type HubOptions struct {
	// Buffer is the number of undelivered chunks a subscriber may hold. One
	// more slot is reserved for the final message.
	Buffer int
	// FinalWait bounds how long a final message waits for a subscriber whose
	// reserved slot is still taken by an earlier final.
	FinalWait time.Duration
}

// Hub is a core.Transport with rooms keyed by session id. Chunk delivery
// never blocks: a full subscriber misses the chunk. A final message always
// fits unless the subscriber left an earlier final unread for FinalWait.
type Hub struct {
	opts HubOptions

	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch        chan Message
	chunks    int
	finalWait time.Duration
	mu        sync.Mutex
	closed    bool
}

var _ core.Transport = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(optFns ...func(o *HubOptions)) *Hub {
	opts := HubOptions{Buffer: 64, FinalWait: 250 * time.Millisecond}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}
	return &Hub{opts: opts, rooms: make(map[string]map[*subscriber]struct{})}
}

// Subscribe joins the session room. The returned func leaves the room and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(sessionID string) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, h.opts.Buffer+1), chunks: h.opts.Buffer, finalWait: h.opts.FinalWait}

	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*subscriber]struct{})
		h.rooms[sessionID] = room
	}
	room[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if room, ok := h.rooms[sessionID]; ok {
				delete(room, sub)
				if len(room) == 0 {
					delete(h.rooms, sessionID)
				}
			}
			h.mu.Unlock()

			sub.mu.Lock()
			sub.closed = true
			close(sub.ch)
			sub.mu.Unlock()
		})
	}
}

// Subscribers returns the number of listeners in a room.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// EmitPartial implements core.Transport.
func (h *Hub) EmitPartial(sessionID, text, messageID string) error {
	return h.publish(Message{Kind: KindPartial, SessionID: sessionID, MessageID: messageID, Text: text})
}

// EmitFinal implements core.Transport.
func (h *Hub) EmitFinal(sessionID, text, messageID string, flags core.FinalFlags) error {
	return h.publish(Message{Kind: KindFinal, SessionID: sessionID, MessageID: messageID, Text: text, Flags: flags})
}

func (h *Hub) publish(msg Message) error {
	msg.At = time.Now().UTC()

	h.mu.RLock()
	room := h.rooms[msg.SessionID]
	subs := make([]*subscriber, 0, len(room))
	for s := range room {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	var dropped bool
	for _, s := range subs {
		if !s.send(msg) {
			dropped = true
		}
	}
	if dropped {
		return ErrSlowConsumer
	}
	return nil
}

func (s *subscriber) send(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	if msg.Kind != KindFinal {
		if len(s.ch) >= s.chunks {
			return false
		}
		s.ch <- msg
		return true
	}

	select {
	case s.ch <- msg:
		return true
	default:
	}
	if s.finalWait <= 0 {
		return false
	}
	timer := time.NewTimer(s.finalWait)
	defer timer.Stop()
	select {
	case s.ch <- msg:
		return true
	case <-timer.C:
		return false
	}
}
