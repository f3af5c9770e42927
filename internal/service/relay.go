package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// drainTimeout bounds how long queued events may take to flush on shutdown.
const drainTimeout = 5 * time.Second

// Sink consumes room events off the request path.
type Sink interface {
	Handle(ctx context.Context, evt entity.Event) error
}

// Relay queues room events and hands them to its sinks from a single goroutine,
// so every sink sees the events of a room in the order the room accepted them.
type Relay struct {
	logger *slog.Logger

	queue chan entity.Event
	sinks []Sink
}

func NewRelay(logger *slog.Logger, buffer int, sinks ...Sink) *Relay {
	return &Relay{
		logger: logger.With("component", "relay"),
		queue:  make(chan entity.Event, buffer),
		sinks:  sinks,
	}
}

// Post enqueues evt without blocking. When the queue is full the event is dropped for the sinks.
func (that *Relay) Post(evt entity.Event) {
	select {
	case that.queue <- evt:
	default:
		that.logger.Warn("relay queue is full, dropping event",
			"method", "Post", "roomID", evt.RoomID, "kind", evt.Kind, "version", evt.State.Version)
	}
}

// Run delivers events until ctx is done, then flushes what is already queued.
func (that *Relay) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")
	log.Info("relay started", "sinks", len(that.sinks))

	for {
		select {
		case evt := <-that.queue:
			that.deliver(ctx, evt)
		case <-ctx.Done():
			that.drain()
			log.Info("relay stopped")
			return
		}
	}
}

func (that *Relay) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case evt := <-that.queue:
			that.deliver(ctx, evt)
		default:
			return
		}
	}
}

func (that *Relay) deliver(ctx context.Context, evt entity.Event) {
	for _, sink := range that.sinks {
		if err := sink.Handle(ctx, evt); err != nil {
			that.logger.Error("failed to deliver event",
				"method", "deliver", "roomID", evt.RoomID, "kind", evt.Kind, "error", err)
		}
	}
}
