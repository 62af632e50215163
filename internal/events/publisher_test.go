package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange, c.key = exchange, key
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChannel) Close() error { return nil }

type fixedSequence struct {
	next int64
	key  string
	err  error
}

func (s *fixedSequence) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	s.key = partitionKey
	return s.next, s.err
}

func TestCartMergedEnvelopeSchema(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	meta := EventMeta{CorrelationID: "c0a8e2b6-3c6a-4d7e-9c8f-1f2e3d4c5b6a", PartitionKey: "alice"}
	payload := CartMergedPayload{UserID: "alice", CartID: "cart-1", GuestID: "guest-1", MergedLines: 2, MergedUnits: 3, Timestamp: now}

	ev := newCartMergedEvent(meta, 4, "storefront", payload, now)
	require.NoError(t, ev.Validate())
	assert.Equal(t, cartMergedSchema, ev.Schema)
	assert.Equal(t, int64(4), ev.Sequence)

	ev.EventName = "WrongName"
	assert.Error(t, ev.Validate())

	ev = newCartMergedEvent(meta, 4, "storefront", CartMergedPayload{UserID: "alice"}, now)
	assert.Error(t, ev.Validate())
}

func TestPublisher_PublishCartMerged(t *testing.T) {
	ch := &recordingChannel{}
	seq := &fixedSequence{next: 9}
	p := newPublisher(ch, seq, PublisherOptions{})
	p.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

	err := p.PublishCartMerged(context.Background(), EventMeta{CorrelationID: "req-1"},
		CartMergedPayload{UserID: "alice", CartID: "cart-1", GuestID: "guest-1", MergedLines: 1, MergedUnits: 2})
	require.NoError(t, err)

	assert.Equal(t, "cart-1", seq.key, "partitions default to the cart")
	assert.Equal(t, EventsExchange, ch.exchange)
	assert.Equal(t, CartMergedRoutingKey, ch.key)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)

	var got CartMergedEvent
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &got))
	assert.Equal(t, EventTypeCartMerged, got.EventName)
	assert.Equal(t, storefrontServiceName, got.Producer)
	assert.Equal(t, "req-1", got.CorrelationID)
	assert.Equal(t, int64(9), got.Sequence)
	assert.Equal(t, got.EventID, ch.msgs[0].MessageId)
	assert.Equal(t, 2, got.Payload.MergedUnits)
	assert.False(t, got.Payload.Timestamp.IsZero())
}

func TestPublisher_SequenceFailure(t *testing.T) {
	ch := &recordingChannel{}
	p := newPublisher(ch, &fixedSequence{err: errors.New("db down")}, PublisherOptions{})

	err := p.PublishCartMerged(context.Background(), EventMeta{},
		CartMergedPayload{UserID: "alice", CartID: "cart-1", GuestID: "guest-1"})
	assert.ErrorContains(t, err, "reserve sequence")
	assert.Empty(t, ch.msgs)
}

func TestDialRequiresURL(t *testing.T) {
	_, err := Dial("")
	assert.Error(t, err)
}
