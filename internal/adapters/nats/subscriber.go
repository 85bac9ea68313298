package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// TripEvent is a trip lifecycle event as received off the stream. Kind is
// the subject suffix: "created", "updated", or "deleted".
type TripEvent struct {
	Kind   string
	TripID string
	Slug   string
}

// Subscriber consumes trip lifecycle events from JetStream.
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

// SubscribeTripEvents delivers every trip lifecycle event to handler. The
// durable name isolates consumer progress per deployment role, so the API
// relay and the geocode worker each see the full stream.
func (s *Subscriber) SubscribeTripEvents(ctx context.Context, durable string, handler func(ctx context.Context, event *TripEvent) error) error {
	sub, err := s.js.Subscribe("travel.trip.>", func(msg *nats.Msg) {
		var payload struct {
			TripID string `json:"trip_id"`
			Slug   string `json:"slug"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			_ = msg.Nak()
			return
		}
		event := &TripEvent{
			Kind:   subjectKind(msg.Subject),
			TripID: payload.TripID,
			Slug:   payload.Slug,
		}
		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func subjectKind(subject string) string {
	for i := len(subject) - 1; i >= 0; i-- {
		if subject[i] == '.' {
			return subject[i+1:]
		}
	}
	return subject
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
