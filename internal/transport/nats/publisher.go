package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher forwards room events to NATS under <prefix>.<roomID>.<kind>.
type Publisher struct {
	logger *slog.Logger
	conn   conn
	prefix string
}

type roomEvent struct {
	Type       entity.EventKind `json:"type"`
	RoomID     string           `json:"roomId"`
	OccupantID string           `json:"playerId,omitempty"`
	GameState  entity.RoomState `json:"gameState"`
}

// Connect dials url and keeps reconnecting for the lifetime of the connection.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("tictactoe-rooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return conn, nil
}

func NewPublisher(logger *slog.Logger, conn conn, prefix string) *Publisher {
	return &Publisher{
		logger: logger.With("component", "nats-publisher"),
		conn:   conn,
		prefix: prefix,
	}
}

func (that *Publisher) Subject(evt entity.Event) string {
	return fmt.Sprintf("%s.%s.%s", that.prefix, evt.RoomID, evt.Kind)
}

func (that *Publisher) Handle(_ context.Context, evt entity.Event) error {
	data, err := json.Marshal(roomEvent{
		Type:       evt.Kind,
		RoomID:     evt.RoomID,
		OccupantID: evt.OccupantID,
		GameState:  evt.State,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}

	subject := that.Subject(evt)
	if err = that.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	that.logger.Debug("event published", "method", "Handle", "subject", subject)
	return nil
}
