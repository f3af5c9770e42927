package tictactoe

import "github.com/rocketscienceinc/tictactoe-rooms/internal/entity"

// Outbox receives every event a room accepts, in acceptance order.
// Post is called while the room lock is held, so implementations must not block
// and must not call back into the room.
type Outbox interface {
	Post(evt entity.Event)
}

// Outboxes posts each event to every outbox in order.
type Outboxes []Outbox

func (that Outboxes) Post(evt entity.Event) {
	for _, outbox := range that {
		outbox.Post(evt)
	}
}

// OutboxFunc adapts a function to Outbox.
type OutboxFunc func(evt entity.Event)

func (that OutboxFunc) Post(evt entity.Event) {
	that(evt)
}
