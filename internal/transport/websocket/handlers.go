package websocket

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

func (that *Server) dispatch(sess *session, data []byte) {
	log := that.logger.With("method", "dispatch", "sessionID", sess.id)

	message, err := decodeMessage(data)
	if err != nil {
		log.Warn("dropping malformed message", "error", err)
		return
	}

	handler, ok := that.handlers[message.Type]
	if !ok {
		log.Debug("ignoring unknown message type", "type", message.Type)
		return
	}

	if err = handler(sess, message); err != nil {
		log.Info("message rejected", "type", message.Type, "roomID", sess.roomID, "error", err)
	}
}

func (that *Server) handleJoinRoom(sess *session, message *Message) error {
	if sess.roomID != "" {
		that.reply(sess, "Already joined a room")
		return fmt.Errorf("%w: room %s", apperror.ErrAlreadyJoined, sess.roomID)
	}

	if _, err := that.rooms.Join(message.RoomID, sess.id, message.Username, message.IsOwner); err != nil {
		switch {
		case errors.Is(err, apperror.ErrRoomFull):
			that.reply(sess, "Room is full")
		default:
			that.reply(sess, "Failed to join room")
		}
		return err
	}

	sess.roomID = message.RoomID

	return nil
}

func (that *Server) handleMakeMove(sess *session, message *Message) error {
	if err := checkBinding(sess, message); err != nil {
		return err
	}

	if _, err := that.rooms.MakeMove(sess.roomID, sess.id, *message.Position); err != nil {
		return err
	}

	return nil
}

func (that *Server) handleResetGame(sess *session, message *Message) error {
	if err := checkBinding(sess, message); err != nil {
		return err
	}

	return that.rooms.ResetRound(sess.roomID)
}

func (that *Server) handleResetMatch(sess *session, message *Message) error {
	if err := checkBinding(sess, message); err != nil {
		return err
	}

	return that.rooms.ResetMatch(sess.roomID)
}

// checkBinding rejects messages from sessions that have not joined, or that name a room
// or player other than the one the session is bound to. Empty ids mean the bound ones.
func checkBinding(sess *session, message *Message) error {
	if sess.roomID == "" {
		return fmt.Errorf("%w: connection has not joined a room", apperror.ErrUnknownOccupant)
	}

	if message.RoomID != "" && message.RoomID != sess.roomID {
		return fmt.Errorf("%w: connection is bound to room %s, not %s",
			apperror.ErrUnknownRoom, sess.roomID, message.RoomID)
	}

	if message.PlayerID != "" && message.PlayerID != sess.id {
		return fmt.Errorf("%w: player %s", apperror.ErrUnknownOccupant, message.PlayerID)
	}

	return nil
}

func (that *Server) reply(sess *session, text string) {
	data, err := encodeResponse(errorResponse(text))
	if err != nil {
		that.logger.Error("failed to encode reply", "method", "reply", "error", err)
		return
	}

	if !sess.enqueue(data) {
		that.logger.Warn("failed to queue reply", "method", "reply", "sessionID", sess.id)
	}
}
