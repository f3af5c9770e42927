package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Hub delivers room events to the connected sessions they are addressed to.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger.With("component", "hub"),
		sessions: make(map[string]*session),
	}
}

func (that *Hub) register(sess *session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[sess.id] = sess
}

func (that *Hub) unregister(sess *session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.sessions[sess.id] == sess {
		delete(that.sessions, sess.id)
	}
}

// Post encodes evt once and queues it for every recipient. A recipient that cannot take
// the message is disconnected; the others still receive it.
func (that *Hub) Post(evt entity.Event) {
	if len(evt.Recipients) == 0 {
		return
	}

	log := that.logger.With("method", "Post", "roomID", evt.RoomID, "kind", evt.Kind)

	data, err := encodeResponse(eventResponse(evt))
	if err != nil {
		log.Error("failed to encode event", "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, id := range evt.Recipients {
		sess, ok := that.sessions[id]
		if !ok {
			log.Debug("recipient is not connected", "sessionID", id)
			continue
		}

		if !sess.enqueue(data) {
			log.Warn("recipient cannot keep up, closing connection", "sessionID", id)
			sess.close()
		}
	}
}

// Len returns the number of connected sessions.
func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}

// CloseAll closes every connected session.
func (that *Hub) CloseAll() {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, sess := range that.sessions {
		sess.close()
	}
}
