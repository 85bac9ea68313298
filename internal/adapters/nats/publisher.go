package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mvarga/waylog/internal/core/domain"
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

	// Ensure the trip event stream exists. Events are retained a week so a
	// restarted worker can catch up on edits it missed.
	cfg := nats.StreamConfig{
		Name:      "TRAVEL_TRIPS",
		Subjects:  []string{"travel.trip.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// tripEvent is the wire shape for trip lifecycle events.
type tripEvent struct {
	TripID string       `json:"trip_id"`
	Slug   string       `json:"slug,omitempty"`
	Trip   *domain.Trip `json:"trip,omitempty"`
}

func (p *Publisher) PublishTripCreated(ctx context.Context, trip *domain.Trip) error {
	return p.publishTrip("travel.trip.created", &tripEvent{TripID: trip.ID, Slug: trip.Slug, Trip: trip})
}

func (p *Publisher) PublishTripUpdated(ctx context.Context, trip *domain.Trip) error {
	return p.publishTrip("travel.trip.updated", &tripEvent{TripID: trip.ID, Slug: trip.Slug, Trip: trip})
}

func (p *Publisher) PublishTripDeleted(ctx context.Context, tripID string) error {
	return p.publishTrip("travel.trip.deleted", &tripEvent{TripID: tripID})
}

func (p *Publisher) publishTrip(subject string, event *tripEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data)
	return err
}

// PublishBroadcast fans a message out to all live map sessions. Broadcasts
// are fire-and-forget, so they skip JetStream.
func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("travel.updates.broadcast", data)
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
