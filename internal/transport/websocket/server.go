package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

type roomManager interface {
	Join(roomID, occupantID, displayName string, isHost bool) (entity.Occupant, error)
	MakeMove(roomID, occupantID string, index int) (tictactoe.MoveResult, error)
	ResetRound(roomID string) error
	ResetMatch(roomID string) error
	Leave(roomID, occupantID string) error
}

type Server struct {
	logger *slog.Logger
	conf   config.WebSocket
	rooms  roomManager
	hub    *Hub

	upgrader websocket.Upgrader
	handlers map[string]func(sess *session, message *Message) error
}

func New(logger *slog.Logger, conf config.WebSocket, rooms roomManager, hub *Hub) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		conf:   conf,
		rooms:  rooms,
		hub:    hub,

		handlers: make(map[string]func(*session, *Message) error),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[typeJoinRoom] = server.handleJoinRoom
	server.handlers[typeMakeMove] = server.handleMakeMove
	server.handlers[typeResetGame] = server.handleResetGame
	server.handlers[typeResetMatch] = server.handleResetMatch

	return server
}

// Register mounts the upgrade endpoint on router.
func (that *Server) Register(router *mux.Router) {
	router.HandleFunc(that.conf.Path, that.ServeWS).Methods(http.MethodGet)
}

// ServeWS upgrades the request and starts the session's read and write loops.
func (that *Server) ServeWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	sess := newSession(uuid.NewString(), conn, that)
	that.hub.register(sess)

	log.Info("websocket connection established", "sessionID", sess.id, "remote", req.RemoteAddr)

	go sess.writePump()
	go sess.readPump()
}

// Close disconnects every session.
func (that *Server) Close() {
	that.hub.CloseAll()
}

func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.conf.AllowedOrigins) == 0 {
		return true
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range that.conf.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}

func (that *Server) disconnect(sess *session) {
	log := that.logger.With("method", "disconnect", "sessionID", sess.id)

	that.hub.unregister(sess)
	sess.close()

	if sess.roomID == "" {
		log.Info("websocket connection closed")
		return
	}

	if err := that.rooms.Leave(sess.roomID, sess.id); err != nil {
		log.Error("failed to leave room", "roomID", sess.roomID, "error", err)
		return
	}

	log.Info("websocket connection closed", "roomID", sess.roomID)
}
