package entity

// Occupant is a connected participant bound to one mark within a room.
type Occupant struct {
	ID          string `json:"id"`
	DisplayName string `json:"username"`
	Mark        Mark   `json:"symbol"`
	LossCount   int    `json:"losses"`
	IsHost      bool   `json:"isOwner"`
}
