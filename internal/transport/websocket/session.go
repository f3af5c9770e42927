package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// session is one client connection. Its id doubles as the occupant id once it joins a room.
type session struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte

	mu     sync.Mutex
	closed bool

	// roomID is set by a successful join and only touched by the read loop.
	roomID string
}

func newSession(id string, conn *websocket.Conn, server *Server) *session {
	return &session{
		id:     id,
		conn:   conn,
		server: server,
		send:   make(chan []byte, server.conf.SendBuffer),
	}
}

// enqueue hands data to the write loop without blocking. It reports false when the
// session is closed or its buffer is full.
func (that *session) enqueue(data []byte) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

// close stops the write loop, which sends a close frame and closes the connection.
func (that *session) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.closed {
		that.closed = true
		close(that.send)
	}
}

func (that *session) readPump() {
	log := that.server.logger.With("method", "readPump", "sessionID", that.id)

	defer func() {
		that.server.disconnect(that)
		_ = that.conn.Close()
	}()

	conf := that.server.conf
	that.conn.SetReadLimit(conf.MaxMessageSize)

	if err := that.conn.SetReadDeadline(time.Now().Add(conf.PongWait)); err != nil {
		log.Error("failed to set read deadline", "error", err)
	}

	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(conf.PongWait))
	})

	for {
		messageType, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Debug("ignoring non-text frame", "messageType", messageType)
			continue
		}

		that.server.dispatch(that, data)
	}
}

func (that *session) writePump() {
	log := that.server.logger.With("method", "writePump", "sessionID", that.id)

	conf := that.server.conf
	ticker := time.NewTicker(conf.PingInterval)

	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			if err := that.conn.SetWriteDeadline(time.Now().Add(conf.WriteWait)); err != nil {
				log.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			if err := that.conn.SetWriteDeadline(time.Now().Add(conf.WriteWait)); err != nil {
				log.Error("failed to set write deadline", "error", err)
				return
			}

			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("failed to ping", "error", err)
				return
			}
		}
	}
}
