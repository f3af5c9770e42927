package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	typeJoinRoom   = "join_room"
	typeMakeMove   = "make_move"
	typeResetGame  = "reset_game"
	typeResetMatch = "reset_match"

	typeError = "error"
)

// Message is an inbound frame. Fields not used by its type are ignored.
type Message struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	IsOwner  bool   `json:"isOwner"`
	PlayerID string `json:"playerId"`
	Position *int   `json:"position"`
}

// Response is an outbound frame.
type Response struct {
	Type        string            `json:"type"`
	PlayerID    string            `json:"playerId,omitempty"`
	GameState   *entity.RoomState `json:"gameState,omitempty"`
	MatchWinner *entity.Occupant  `json:"matchWinner,omitempty"`
	Message     string            `json:"message,omitempty"`
}

func decodeMessage(data []byte) (*Message, error) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	if message.Type == "" {
		return nil, fmt.Errorf("%w: missing type", apperror.ErrMalformedMessage)
	}

	switch message.Type {
	case typeJoinRoom:
		if message.RoomID == "" {
			return nil, fmt.Errorf("%w: join_room without roomId", apperror.ErrMalformedMessage)
		}
	case typeMakeMove:
		if message.Position == nil {
			return nil, fmt.Errorf("%w: make_move without position", apperror.ErrMalformedMessage)
		}
	}

	return &message, nil
}

func eventResponse(evt entity.Event) Response {
	state := evt.State

	response := Response{
		Type:      string(evt.Kind),
		GameState: &state,
	}

	switch evt.Kind {
	case entity.EventPlayerJoined:
		response.PlayerID = evt.OccupantID
	case entity.EventMatchOver:
		response.MatchWinner = state.MatchWinner
	}

	return response
}

func errorResponse(message string) Response {
	return Response{
		Type:    typeError,
		Message: message,
	}
}

func encodeResponse(response Response) ([]byte, error) {
	data, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return data, nil
}
