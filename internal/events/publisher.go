package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Sequencer reserves the next sequence number for a partition.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch       channel
	seq      Sequencer
	producer string
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = storefrontServiceName
	}
	return &Publisher{ch: ch, seq: seq, producer: producer, now: time.Now}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishCartMerged emits CartMerged. Events are partitioned by cart unless meta says otherwise.
func (p *Publisher) PublishCartMerged(ctx context.Context, meta EventMeta, payload CartMergedPayload) error {
	occurredAt := p.now().UTC()
	if payload.Timestamp.IsZero() {
		payload.Timestamp = occurredAt
	}
	if meta.PartitionKey == "" {
		meta.PartitionKey = payload.CartID
	}

	seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	ev := newCartMergedEvent(meta, seq, p.producer, payload, occurredAt)
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid CartMerged: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CartMerged envelope: %w", err)
	}
	return p.publishJSON(ctx, CartMergedRoutingKey, ev.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         body,
		},
	)
}

func newCartMergedEvent(meta EventMeta, seq int64, producer string, payload CartMergedPayload, occurredAt time.Time) CartMergedEvent {
	return CartMergedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeCartMerged,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        cartMergedSchema,
		},
		Payload: payload,
	}
}

// Nop drops events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishCartMerged(context.Context, EventMeta, CartMergedPayload) error { return nil }
