package service

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type snapshotRepo interface {
	CreateOrUpdate(ctx context.Context, state entity.RoomState) error
	DeleteByID(ctx context.Context, roomID string) error
}

// SnapshotMirror keeps the snapshot store in step with room events.
type SnapshotMirror struct {
	snapshots snapshotRepo
}

func NewSnapshotMirror(snapshots snapshotRepo) *SnapshotMirror {
	return &SnapshotMirror{snapshots: snapshots}
}

func (that *SnapshotMirror) Handle(ctx context.Context, evt entity.Event) error {
	switch evt.Kind {
	case entity.EventRoomClosed:
		if err := that.snapshots.DeleteByID(ctx, evt.RoomID); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
	case entity.EventPlayerJoined:
		// the room-wide update that follows carries the same state
	default:
		if err := that.snapshots.CreateOrUpdate(ctx, evt.State); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
	}

	return nil
}
