package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// maxJoinAttempts bounds retries when a join lands on a room that was closed under it.
const maxJoinAttempts = 3

type roomRegistry interface {
	GetOrCreate(id string) (*tictactoe.Room, bool)
	Get(id string) (*tictactoe.Room, error)
	Release(room *tictactoe.Room) bool
	IDs() []string
}

type snapshotRepo interface {
	GetByID(ctx context.Context, roomID string) (entity.RoomState, error)
}

type RoomManager struct {
	logger *slog.Logger

	rooms     roomRegistry
	snapshots snapshotRepo
}

// NewRoomManager builds the room operations. snapshots may be nil when no mirror is configured.
func NewRoomManager(logger *slog.Logger, rooms roomRegistry, snapshots snapshotRepo) *RoomManager {
	return &RoomManager{
		logger: logger,

		rooms:     rooms,
		snapshots: snapshots,
	}
}

func (that *RoomManager) Join(roomID, occupantID, displayName string, isHost bool) (entity.Occupant, error) {
	log := that.logger.With("method", "Join", "roomID", roomID, "occupantID", occupantID)

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		room, created := that.rooms.GetOrCreate(roomID)
		if created {
			log.Debug("room created")
		}

		occupant, err := room.Join(occupantID, displayName, isHost)
		if errors.Is(err, apperror.ErrRoomClosed) {
			log.Debug("room closed during join, retrying")
			continue
		}

		if err != nil {
			return entity.Occupant{}, fmt.Errorf("failed to join room: %w", err)
		}

		log.Info("occupant joined", "mark", occupant.Mark)
		return occupant, nil
	}

	return entity.Occupant{}, fmt.Errorf("failed to join room: %w", apperror.ErrRoomClosed)
}

func (that *RoomManager) MakeMove(roomID, occupantID string, index int) (tictactoe.MoveResult, error) {
	room, err := that.rooms.Get(roomID)
	if err != nil {
		return tictactoe.RoundContinues, err
	}

	result, err := room.Move(occupantID, index)
	if err != nil {
		return result, fmt.Errorf("failed to make move: %w", err)
	}

	if result == tictactoe.MatchEnded {
		that.logger.Info("match over", "method", "MakeMove", "roomID", roomID)
	}

	return result, nil
}

func (that *RoomManager) ResetRound(roomID string) error {
	room, err := that.rooms.Get(roomID)
	if err != nil {
		return err
	}

	if err = room.ResetRound(); err != nil {
		return fmt.Errorf("failed to reset round: %w", err)
	}

	return nil
}

func (that *RoomManager) ResetMatch(roomID string) error {
	room, err := that.rooms.Get(roomID)
	if err != nil {
		return err
	}

	if err = room.ResetMatch(); err != nil {
		return fmt.Errorf("failed to reset match: %w", err)
	}

	return nil
}

// Leave removes the occupant and evicts the room once nobody is left in it.
func (that *RoomManager) Leave(roomID, occupantID string) error {
	log := that.logger.With("method", "Leave", "roomID", roomID, "occupantID", occupantID)

	room, err := that.rooms.Get(roomID)
	if err != nil {
		return err
	}

	empty, err := room.Leave(occupantID)
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	log.Info("occupant left")

	if empty && that.rooms.Release(room) {
		log.Info("room released")
	}

	return nil
}

// ListRooms returns the ids of the rooms held by this process.
func (that *RoomManager) ListRooms() []string {
	return that.rooms.IDs()
}

// GetRoom returns the live state of a room, falling back to the last mirrored snapshot.
func (that *RoomManager) GetRoom(ctx context.Context, roomID string) (entity.RoomState, error) {
	room, err := that.rooms.Get(roomID)
	if err == nil {
		return room.Snapshot(), nil
	}

	if that.snapshots == nil {
		return entity.RoomState{}, fmt.Errorf("%w: room %s", apperror.ErrNotFound, roomID)
	}

	state, err := that.snapshots.GetByID(ctx, roomID)
	if err != nil {
		return entity.RoomState{}, fmt.Errorf("failed to get room snapshot: %w", err)
	}

	return state, nil
}
