package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type roomReader interface {
	ListRooms() []string
	GetRoom(ctx context.Context, roomID string) (entity.RoomState, error)
}

type roomList struct {
	Count int      `json:"count"`
	Rooms []string `json:"rooms"`
}

type Handlers struct {
	logger *slog.Logger
	rooms  roomReader
}

func NewHandlers(logger *slog.Logger, rooms roomReader) *Handlers {
	return &Handlers{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
	}
}

// Register mounts the REST routes on router.
func (that *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/ping", that.Ping).Methods(http.MethodGet)
	router.HandleFunc("/rooms", that.ListRooms).Methods(http.MethodGet)
	router.HandleFunc("/rooms/{roomID}", that.GetRoom).Methods(http.MethodGet)
}

func (that *Handlers) ListRooms(w http.ResponseWriter, _ *http.Request) {
	ids := that.rooms.ListRooms()

	that.writeJSON(w, http.StatusOK, roomList{Count: len(ids), Rooms: ids})
}

func (that *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	log := that.logger.With("method", "GetRoom", "roomID", roomID)

	state, err := that.rooms.GetRoom(r.Context(), roomID)
	if errors.Is(err, apperror.ErrNotFound) {
		that.writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}

	if err != nil {
		log.Error("failed to get room", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	that.writeJSON(w, http.StatusOK, state)
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "method", "writeJSON", "error", err)
	}
}
