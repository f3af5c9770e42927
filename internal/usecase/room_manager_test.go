package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

var errRedisDown = errors.New("redis down")

type mockSnapshotRepo struct {
	mock.Mock
}

func (that *mockSnapshotRepo) GetByID(ctx context.Context, roomID string) (entity.RoomState, error) {
	args := that.Called(ctx, roomID)
	return args.Get(0).(entity.RoomState), args.Error(1)
}

// closingRegistry hands out a closed room a fixed number of times before delegating.
type closingRegistry struct {
	*repository.RoomRegistry
	closedLeft int
}

func (that *closingRegistry) GetOrCreate(id string) (*tictactoe.Room, bool) {
	if that.closedLeft > 0 {
		that.closedLeft--
		room := tictactoe.NewRoom(id, nil)
		room.CloseIfEmpty()
		return room, true
	}
	return that.RoomRegistry.GetOrCreate(id)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestManager(snapshots snapshotRepo) (*RoomManager, *repository.RoomRegistry) {
	registry := repository.NewRoomRegistry(nil)
	return NewRoomManager(newTestLogger(), registry, snapshots), registry
}

func TestRoomManager_Join(t *testing.T) {
	t.Run("creates the room on first join", func(t *testing.T) {
		// Given: an empty registry
		manager, registry := newTestManager(nil)

		// When: two occupants join the same room
		host, err := manager.Join("ABCD", "a", "alice", true)
		require.NoError(t, err)
		guest, err := manager.Join("ABCD", "b", "bob", false)
		require.NoError(t, err)

		// Then: both share one room with X and O
		assert.Equal(t, entity.MarkX, host.Mark)
		assert.Equal(t, entity.MarkO, guest.Mark)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("full room is reported to the joiner", func(t *testing.T) {
		manager, _ := newTestManager(nil)
		_, err := manager.Join("ABCD", "a", "alice", true)
		require.NoError(t, err)
		_, err = manager.Join("ABCD", "b", "bob", false)
		require.NoError(t, err)

		_, err = manager.Join("ABCD", "c", "carol", false)

		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("retries when the room closes underneath", func(t *testing.T) {
		// Given: a registry that first returns a room that was just closed
		registry := &closingRegistry{RoomRegistry: repository.NewRoomRegistry(nil), closedLeft: 1}
		manager := NewRoomManager(newTestLogger(), registry, nil)

		// When: an occupant joins
		occupant, err := manager.Join("ABCD", "a", "alice", true)

		// Then: the join lands in a fresh room
		require.NoError(t, err)
		assert.Equal(t, entity.MarkX, occupant.Mark)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("gives up after repeated closures", func(t *testing.T) {
		registry := &closingRegistry{RoomRegistry: repository.NewRoomRegistry(nil), closedLeft: maxJoinAttempts}
		manager := NewRoomManager(newTestLogger(), registry, nil)

		_, err := manager.Join("ABCD", "a", "alice", true)

		require.ErrorIs(t, err, apperror.ErrRoomClosed)
	})
}

func TestRoomManager_MakeMove(t *testing.T) {
	t.Run("unknown room", func(t *testing.T) {
		manager, registry := newTestManager(nil)

		_, err := manager.MakeMove("nope", "a", 0)

		require.ErrorIs(t, err, apperror.ErrUnknownRoom)
		assert.Zero(t, registry.Len())
	})

	t.Run("plays a match to the end", func(t *testing.T) {
		// Given: a full room
		manager, _ := newTestManager(nil)
		_, err := manager.Join("ABCD", "a", "alice", true)
		require.NoError(t, err)
		_, err = manager.Join("ABCD", "b", "bob", false)
		require.NoError(t, err)

		// When: X wins three rounds
		var result tictactoe.MoveResult
		for round := 0; round < entity.MatchLossLimit; round++ {
			if round > 0 {
				require.NoError(t, manager.ResetRound("ABCD"))
			}
			for i, index := range []int{0, 3, 1, 4, 2} {
				occupant := "a"
				if i%2 == 1 {
					occupant = "b"
				}
				result, err = manager.MakeMove("ABCD", occupant, index)
				require.NoError(t, err)
			}
		}

		// Then: the match has ended and round resets are refused
		assert.Equal(t, tictactoe.MatchEnded, result)
		require.ErrorIs(t, manager.ResetRound("ABCD"), apperror.ErrMatchOver)

		// When: the match is reset
		require.NoError(t, manager.ResetMatch("ABCD"))

		// Then: play can start over
		_, err = manager.MakeMove("ABCD", "a", 4)
		require.NoError(t, err)
	})

	t.Run("rejected move", func(t *testing.T) {
		manager, _ := newTestManager(nil)
		_, err := manager.Join("ABCD", "a", "alice", true)
		require.NoError(t, err)
		_, err = manager.Join("ABCD", "b", "bob", false)
		require.NoError(t, err)

		_, err = manager.MakeMove("ABCD", "b", 0)

		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})
}

func TestRoomManager_Reset(t *testing.T) {
	manager, _ := newTestManager(nil)

	require.ErrorIs(t, manager.ResetRound("nope"), apperror.ErrUnknownRoom)
	require.ErrorIs(t, manager.ResetMatch("nope"), apperror.ErrUnknownRoom)
}

func TestRoomManager_Leave(t *testing.T) {
	t.Run("last occupant releases the room", func(t *testing.T) {
		// Given: a room with two occupants
		manager, registry := newTestManager(nil)
		_, err := manager.Join("ABCD", "a", "alice", true)
		require.NoError(t, err)
		_, err = manager.Join("ABCD", "b", "bob", false)
		require.NoError(t, err)

		// When: the first occupant leaves
		require.NoError(t, manager.Leave("ABCD", "a"))

		// Then: the room stays
		assert.Equal(t, 1, registry.Len())

		// When: the second occupant leaves
		require.NoError(t, manager.Leave("ABCD", "b"))

		// Then: the room is evicted
		assert.Zero(t, registry.Len())
	})

	t.Run("unknown room", func(t *testing.T) {
		manager, _ := newTestManager(nil)

		require.ErrorIs(t, manager.Leave("nope", "a"), apperror.ErrUnknownRoom)
	})
}

func TestRoomManager_ListRooms(t *testing.T) {
	// Given: two rooms, one of which has been emptied
	manager, _ := newTestManager(nil)
	_, err := manager.Join("ZZZZ", "a", "alice", true)
	require.NoError(t, err)
	_, err = manager.Join("ABCD", "b", "bob", true)
	require.NoError(t, err)
	require.NoError(t, manager.Leave("ZZZZ", "a"))

	// When: the rooms are listed
	ids := manager.ListRooms()

	// Then: only the live room is reported
	assert.Equal(t, []string{"ABCD"}, ids)
}

func TestRoomManager_GetRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("live room wins over the mirror", func(t *testing.T) {
		// Given: a live room and a mirror that must not be asked
		snapshots := &mockSnapshotRepo{}
		manager, _ := newTestManager(snapshots)
		_, err := manager.Join("ABCD", "a", "alice", true)
		require.NoError(t, err)

		// When: the room is fetched
		state, err := manager.GetRoom(ctx, "ABCD")

		// Then: the live state is returned
		require.NoError(t, err)
		assert.Equal(t, "ABCD", state.RoomID)
		assert.Len(t, state.Occupants, 1)
		snapshots.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("falls back to the mirror", func(t *testing.T) {
		// Given: a room that only exists in the mirror
		snapshots := &mockSnapshotRepo{}
		manager, _ := newTestManager(snapshots)
		mirrored := entity.RoomState{RoomID: "GONE", Status: entity.StatusClosed, Version: 7}
		snapshots.On("GetByID", mock.Anything, "GONE").Return(mirrored, nil).Once()

		// When: the room is fetched
		state, err := manager.GetRoom(ctx, "GONE")

		// Then: the mirrored snapshot is returned
		require.NoError(t, err)
		assert.Equal(t, mirrored, state)
		snapshots.AssertExpectations(t)
	})

	t.Run("mirror errors are passed on", func(t *testing.T) {
		snapshots := &mockSnapshotRepo{}
		manager, _ := newTestManager(snapshots)
		snapshots.On("GetByID", mock.Anything, "GONE").
			Return(entity.RoomState{}, fmt.Errorf("%w: room GONE", apperror.ErrNotFound)).Once()
		snapshots.On("GetByID", mock.Anything, "DOWN").
			Return(entity.RoomState{}, errRedisDown).Once()

		_, err := manager.GetRoom(ctx, "GONE")
		require.ErrorIs(t, err, apperror.ErrNotFound)

		_, err = manager.GetRoom(ctx, "DOWN")
		require.ErrorIs(t, err, errRedisDown)
	})

	t.Run("no mirror configured", func(t *testing.T) {
		manager, _ := newTestManager(nil)

		_, err := manager.GetRoom(ctx, "ABCD")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
