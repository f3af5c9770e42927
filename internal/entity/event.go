package entity

type EventKind string

const (
	EventPlayerJoined EventKind = "player_joined"
	EventStateUpdate  EventKind = "game_state_update"
	EventMoveMade     EventKind = "move_made"
	EventGameOver     EventKind = "game_over"
	EventMatchOver    EventKind = "match_over"
	EventGameReset    EventKind = "game_reset"
	EventMatchReset   EventKind = "match_reset"

	// EventRoomClosed is emitted when a room leaves the registry. It has no recipients.
	EventRoomClosed EventKind = "room_closed"
)

// Event is an accepted change of a room, addressed to the occupant ids in Recipients.
type Event struct {
	Kind       EventKind
	RoomID     string
	Recipients []string
	// OccupantID names the new occupant of an EventPlayerJoined.
	OccupantID string
	State      RoomState
}
