package entity

type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusRoundOver  RoomStatus = "round_over"
	StatusMatchOver  RoomStatus = "match_over"
	StatusClosed     RoomStatus = "closed"
)

// MatchLossLimit is the number of lost rounds that ends a match.
const MatchLossLimit = 3

// RoomState is the externally visible state of a room at one instant.
// Instance changes whenever a room id is created anew; Version counts mutations within one instance.
type RoomState struct {
	RoomID      string     `json:"roomId"`
	Instance    string     `json:"instance"`
	Board       Board      `json:"board"`
	Turn        Mark       `json:"currentPlayer"`
	Winner      Mark       `json:"winner"`
	RoundOver   bool       `json:"gameOver"`
	Occupants   []Occupant `json:"players"`
	MatchWinner *Occupant  `json:"matchWinner"`
	MatchOver   bool       `json:"matchOver"`
	Status      RoomStatus `json:"status"`
	Version     uint64     `json:"version"`
}

// Occupant returns the occupant with the given id.
func (that RoomState) Occupant(id string) (Occupant, bool) {
	for _, occupant := range that.Occupants {
		if occupant.ID == id {
			return occupant, true
		}
	}
	return Occupant{}, false
}
