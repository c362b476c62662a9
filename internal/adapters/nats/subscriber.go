package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tapmap/internal/core/ports"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

var _ ports.EventSubscriber = (*Subscriber)(nil)

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeDatasetUpdated delivers dataset events to handler. The consumer is
// ephemeral so that every API replica sees every event.
func (s *Subscriber) SubscribeDatasetUpdated(ctx context.Context, handler func(ctx context.Context, event *ports.DatasetUpdated) error) error {
	sub, err := s.js.Subscribe(SubjectDatasetUpdated, func(msg *nats.Msg) {
		if err := dispatchDatasetUpdated(ctx, msg.Data, handler); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectDatasetUpdated, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func dispatchDatasetUpdated(ctx context.Context, data []byte, handler func(ctx context.Context, event *ports.DatasetUpdated) error) error {
	var event ports.DatasetUpdated
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode dataset event: %w", err)
	}
	return handler(ctx, &event)
}

// Ping reports whether the connection is usable.
func (s *Subscriber) Ping() error {
	if !s.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
