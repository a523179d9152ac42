package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/emberline/faregate/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeTransactions(ctx context.Context, handler func(ctx context.Context, tx *domain.Transaction) error) error {
	sub, err := s.js.Subscribe("fare.tx.>", func(msg *nats.Msg) {
		var tx domain.Transaction
		if err := json.Unmarshal(msg.Data, &tx); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &tx); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("tx-relay"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeJourneyEvents(ctx context.Context, handler func(ctx context.Context, event *domain.JourneyEvent) error) error {
	sub, err := s.js.Subscribe("fare.journey.>", func(msg *nats.Msg) {
		var event domain.JourneyEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("journey-relay"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
