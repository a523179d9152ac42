package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/emberline/faregate/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "FARE_TRANSACTIONS",
			Subjects:  []string{"fare.tx.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "FARE_JOURNEYS",
			Subjects:  []string{"fare.journey.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishTransaction(ctx context.Context, tx *domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("fare.tx."+tx.SystemID, data)
	return err
}

func (p *Publisher) PublishJourneyEvent(ctx context.Context, event *domain.JourneyEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("fare.journey."+event.SystemID, data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("fare.updates.broadcast", data)
}

// Notify implements ports.Notifier. Messages go out core NATS on a
// per-rider subject; delivery surfaces (gate displays, apps) subscribe to
// their rider's subject.
func (p *Publisher) Notify(ctx context.Context, riderID, message string) error {
	data, err := json.Marshal(map[string]string{
		"rider_id": riderID,
		"message":  message,
	})
	if err != nil {
		return err
	}
	return p.conn.Publish("fare.notify."+riderID, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
