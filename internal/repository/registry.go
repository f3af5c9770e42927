package repository

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// RoomRegistry maps room ids to live rooms. Every room it creates posts to the same outbox.
type RoomRegistry struct {
	mu     sync.Mutex
	rooms  map[string]*tictactoe.Room
	outbox tictactoe.Outbox
}

func NewRoomRegistry(outbox tictactoe.Outbox) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*tictactoe.Room),
		outbox: outbox,
	}
}

// GetOrCreate returns the room registered under id, creating an empty one if there is none.
// Concurrent callers for the same unseen id all receive the same room.
func (that *RoomRegistry) GetOrCreate(id string) (*tictactoe.Room, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if room, ok := that.rooms[id]; ok {
		return room, false
	}

	room := tictactoe.NewRoom(id, that.outbox)
	that.rooms[id] = room

	return room, true
}

func (that *RoomRegistry) Get(id string) (*tictactoe.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUnknownRoom, id)
	}

	return room, nil
}

// Remove evicts id unconditionally. Removing an unknown id is a no-op.
func (that *RoomRegistry) Remove(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, id)
}

// Release evicts room if it is still registered and has no occupants. The room is closed
// in the same step, so a join racing with the eviction fails with apperror.ErrRoomClosed
// instead of landing in an orphaned room.
func (that *RoomRegistry) Release(room *tictactoe.Room) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.rooms[room.ID()] != room {
		return false
	}

	if !room.CloseIfEmpty() {
		return false
	}

	delete(that.rooms, room.ID())

	return true
}

func (that *RoomRegistry) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms)
}

// IDs returns the registered room ids in sorted order.
func (that *RoomRegistry) IDs() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	ids := make([]string, 0, len(that.rooms))
	for id := range that.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
