package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

var errSinkDown = errors.New("sink down")

type recordingSink struct {
	mu       sync.Mutex
	versions []uint64
	err      error
}

func (that *recordingSink) Handle(_ context.Context, evt entity.Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.versions = append(that.versions, evt.State.Version)
	return that.err
}

func (that *recordingSink) seen() []uint64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]uint64(nil), that.versions...)
}

type mockSnapshotRepo struct {
	mock.Mock
}

func (that *mockSnapshotRepo) CreateOrUpdate(ctx context.Context, state entity.RoomState) error {
	return that.Called(ctx, state).Error(0)
}

func (that *mockSnapshotRepo) DeleteByID(ctx context.Context, roomID string) error {
	return that.Called(ctx, roomID).Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRelay_DeliversInOrder(t *testing.T) {
	// Given: a running relay with two sinks, one of them failing
	healthy := &recordingSink{}
	failing := &recordingSink{err: errSinkDown}
	relay := NewRelay(newTestLogger(), 16, healthy, failing)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	// When: a room accepts a sequence of mutations
	room := tictactoe.NewRoom("ABCD", relay)
	_, err := room.Join("a", "alice", true)
	require.NoError(t, err)
	_, err = room.Join("b", "bob", false)
	require.NoError(t, err)
	_, err = room.Move("a", 4)
	require.NoError(t, err)

	// Then: both sinks see every event in acceptance order
	want := []uint64{1, 1, 2, 2, 3}
	assert.Eventually(t, func() bool {
		return len(healthy.seen()) == len(want) && len(failing.seen()) == len(want)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, want, healthy.seen())
	assert.Equal(t, want, failing.seen())

	cancel()
	<-done
}

func TestRelay_DrainsOnShutdown(t *testing.T) {
	// Given: events queued before the relay runs
	sink := &recordingSink{}
	relay := NewRelay(newTestLogger(), 4, sink)
	for version := uint64(1); version <= 3; version++ {
		relay.Post(entity.Event{Kind: entity.EventMoveMade, State: entity.RoomState{Version: version}})
	}

	// When: the relay is started with a context that is already done
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Run(ctx)

	// Then: the queued events were flushed
	assert.Equal(t, []uint64{1, 2, 3}, sink.seen())
}

func TestRelay_DropsWhenFull(t *testing.T) {
	// Given: a relay with room for one event and nobody draining it
	sink := &recordingSink{}
	relay := NewRelay(newTestLogger(), 1, sink)

	// When: two events are posted
	relay.Post(entity.Event{State: entity.RoomState{Version: 1}})
	relay.Post(entity.Event{State: entity.RoomState{Version: 2}})

	// Then: the second one is dropped without blocking
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Run(ctx)
	assert.Equal(t, []uint64{1}, sink.seen())
}

func TestSnapshotMirror_Handle(t *testing.T) {
	ctx := context.Background()
	state := entity.RoomState{RoomID: "ABCD", Version: 2}

	t.Run("stores state updates", func(t *testing.T) {
		snapshots := &mockSnapshotRepo{}
		snapshots.On("CreateOrUpdate", mock.Anything, state).Return(nil).Once()
		mirror := NewSnapshotMirror(snapshots)

		err := mirror.Handle(ctx, entity.Event{Kind: entity.EventMoveMade, RoomID: "ABCD", State: state})

		require.NoError(t, err)
		snapshots.AssertExpectations(t)
	})

	t.Run("skips the targeted join notice", func(t *testing.T) {
		snapshots := &mockSnapshotRepo{}
		mirror := NewSnapshotMirror(snapshots)

		err := mirror.Handle(ctx, entity.Event{Kind: entity.EventPlayerJoined, RoomID: "ABCD", State: state})

		require.NoError(t, err)
		snapshots.AssertNotCalled(t, "CreateOrUpdate", mock.Anything, mock.Anything)
	})

	t.Run("deletes closed rooms", func(t *testing.T) {
		snapshots := &mockSnapshotRepo{}
		snapshots.On("DeleteByID", mock.Anything, "ABCD").Return(errSinkDown).Once()
		mirror := NewSnapshotMirror(snapshots)

		err := mirror.Handle(ctx, entity.Event{Kind: entity.EventRoomClosed, RoomID: "ABCD"})

		require.ErrorIs(t, err, errSinkDown)
		snapshots.AssertExpectations(t)
	})
}
