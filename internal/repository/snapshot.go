package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// SnapshotRepository keeps the last known state of each room outside the process.
type SnapshotRepository interface {
	CreateOrUpdate(ctx context.Context, state entity.RoomState) error
	GetByID(ctx context.Context, roomID string) (entity.RoomState, error)
	DeleteByID(ctx context.Context, roomID string) error
}

type dbSnapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotRepository stores snapshots under "room:<id>". A zero ttl keeps them forever.
func NewSnapshotRepository(client *redis.Client, ttl time.Duration) SnapshotRepository {
	return &dbSnapshot{
		client: client,
		ttl:    ttl,
	}
}

func snapshotKey(roomID string) string {
	return "room:" + roomID
}

func (that *dbSnapshot) CreateOrUpdate(ctx context.Context, state entity.RoomState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal room state: %w", err)
	}

	// Events of one room are written in order, but a stale version must never win.
	err = that.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, snapshotKey(state.RoomID)).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		if err == nil {
			var stored entity.RoomState
			if json.Unmarshal(current, &stored) == nil && isNewer(stored, state) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey(state.RoomID), stateJSON, that.ttl)
			return nil
		})
		return err
	}, snapshotKey(state.RoomID))
	if err != nil {
		return fmt.Errorf("failed to set room state: %w", err)
	}

	return nil
}

// isNewer reports whether stored is a later state of the same room instance than state.
// A different instance always loses, so a room created again under an old id is never
// shadowed by a key that outlived its predecessor.
func isNewer(stored, state entity.RoomState) bool {
	return stored.Instance == state.Instance && stored.Version > state.Version
}

func (that *dbSnapshot) GetByID(ctx context.Context, roomID string) (entity.RoomState, error) {
	response, err := that.client.Get(ctx, snapshotKey(roomID)).Result()

	if errors.Is(err, redis.Nil) {
		return entity.RoomState{}, fmt.Errorf("%w: room %s", apperror.ErrNotFound, roomID)
	}

	if err != nil {
		return entity.RoomState{}, fmt.Errorf("failed to get room state by id: %w", err)
	}

	var state entity.RoomState
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return entity.RoomState{}, fmt.Errorf("failed to unmarshal room state: %w", err)
	}

	return state, nil
}

func (that *dbSnapshot) DeleteByID(ctx context.Context, roomID string) error {
	err := that.client.Del(ctx, snapshotKey(roomID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete room state by id: %w", err)
	}

	return nil
}
