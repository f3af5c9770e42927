package apperror

import "errors"

var (
	ErrRoomFull         = errors.New("room is full")
	ErrRoomClosed       = errors.New("room is closed")
	ErrUnknownRoom      = errors.New("room not found")
	ErrUnknownOccupant  = errors.New("occupant is not in this room")
	ErrAlreadyJoined    = errors.New("connection already joined a room")
	ErrMalformedMessage = errors.New("malformed message")
	ErrNotFound         = errors.New("not found")

	ErrInvalidMove      = errors.New("invalid move")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")
	ErrRoundOver        = errors.New("round is already over")
	ErrMatchOver        = errors.New("match is already over")
	ErrGameIsNotStarted = errors.New("game is not started")
)
