package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/config"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/outbox"
	"github.com/baanfurniture/storefront-backend/pkg/outbox/registry"
)

const testTopic = "storefront-order-events"

func TestRelayBatchRetriesFailedOrderAndPublishesOthers(t *testing.T) {
	failing, healthy := orderEvent(t, uuid.New(), enums.EventOrderCreated), orderEvent(t, uuid.New(), enums.EventOrderCreated)
	store := &fakeStore{rows: []models.OutboxEvent{failing, healthy}}
	pub := newFakePublisher()
	pub.fail[failing.AggregateID.String()] = errors.New("deadline exceeded")
	relay := newTestRelay(t, store, pub, 5)

	published, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, published)
	require.Equal(t, []uuid.UUID{failing.ID}, store.failed)
	require.Equal(t, []uuid.UUID{healthy.ID}, store.published)
	require.Equal(t, []string{failing.AggregateID.String()}, pub.resumed)
}

func TestRelayBatchHoldsLaterEventsOfFailedOrder(t *testing.T) {
	orderID := uuid.New()
	created := orderEvent(t, orderID, enums.EventOrderCreated)
	approved := orderEvent(t, orderID, enums.EventOrderStatusChanged)
	other := orderEvent(t, uuid.New(), enums.EventOrderStatusChanged)
	store := &fakeStore{rows: []models.OutboxEvent{created, approved, other}}
	pub := newFakePublisher()
	pub.fail[orderID.String()] = errors.New("unavailable")
	relay := newTestRelay(t, store, pub, 5)

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.messages, 2, "held event must not reach the publisher")
	require.Equal(t, created.ID.String(), pub.messages[0].Attributes["event_id"])
	require.Equal(t, other.ID.String(), pub.messages[1].Attributes["event_id"])
	require.Equal(t, []uuid.UUID{created.ID}, store.failed)
	require.Equal(t, []uuid.UUID{other.ID}, store.published)
	require.Empty(t, store.terminal)
}

func TestRelayBatchAttemptBudgetDependsOnEventType(t *testing.T) {
	statusChange := orderEvent(t, uuid.New(), enums.EventOrderStatusChanged)
	statusChange.AttemptCount = 4
	payment := orderEvent(t, uuid.New(), enums.EventInstallmentPaid)
	payment.AttemptCount = 4
	store := &fakeStore{rows: []models.OutboxEvent{statusChange, payment}}
	pub := newFakePublisher()
	pub.fail[statusChange.AggregateID.String()] = errors.New("unavailable")
	pub.fail[payment.AggregateID.String()] = errors.New("unavailable")
	relay := newTestRelay(t, store, pub, 5)

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{statusChange.ID}, store.terminal, "status change spent its budget of 5")
	require.Equal(t, []uuid.UUID{payment.ID}, store.failed, "installment payment still has attempts left")
	require.Equal(t, 10, store.terminalAttempts)
	require.Equal(t, 10, store.fetchedBelow)
}

func TestRelayBatchParksRejectedPublish(t *testing.T) {
	row := orderEvent(t, uuid.New(), enums.EventOrderCreated)
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	pub := newFakePublisher()
	pub.fail[row.AggregateID.String()] = status.Error(codes.NotFound, "topic not found")
	relay := newTestRelay(t, store, pub, 5)

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{row.ID}, store.terminal)
	require.Empty(t, store.failed)
}

func TestRelayBatchParksUnresolvableRow(t *testing.T) {
	row := orderEvent(t, uuid.New(), enums.EventOrderCreated)
	row.Payload = json.RawMessage(`{"version":1}`)
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	pub := newFakePublisher()
	relay := newTestRelay(t, store, pub, 5)

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{row.ID}, store.terminal)
	require.Empty(t, pub.messages)
}

func TestRelayParksWhenTopicHasNoPublisher(t *testing.T) {
	row := orderEvent(t, uuid.New(), enums.EventOrderCreated)
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	relay := newTestRelay(t, store, nil, 5)
	relay.open = func(string) topicPublisher { return nil }

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{row.ID}, store.terminal)
}

func TestRelayMessageCarriesOrderingKeyAndAttributes(t *testing.T) {
	orderID := uuid.New()
	row := orderEvent(t, orderID, enums.EventInstallmentPaid)
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	pub := newFakePublisher()
	relay := newTestRelay(t, store, pub, 5)

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	require.Equal(t, orderID.String(), msg.OrderingKey)
	require.Equal(t, "installment_paid", msg.Attributes["event_type"])
	require.Equal(t, orderID.String(), msg.Attributes["order_id"])
	require.Equal(t, row.ID.String(), msg.Attributes["event_id"])
	require.JSONEq(t, string(row.Payload), string(msg.Data))
}

func TestRelayReusesAndStopsTopicPublishers(t *testing.T) {
	store := &fakeStore{rows: []models.OutboxEvent{orderEvent(t, uuid.New(), enums.EventOrderCreated)}}
	pub := newFakePublisher()
	relay := newTestRelay(t, store, pub, 5)
	opened := 0
	relay.open = func(string) topicPublisher {
		opened++
		return pub
	}

	for range 2 {
		_, err := relay.relayBatch(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 1, opened)

	relay.stopPublishers()
	require.True(t, pub.stopped)
	require.Empty(t, relay.publishers)
}

func TestRelayRunStopsOnCancelledContext(t *testing.T) {
	relay := newTestRelay(t, &fakeStore{}, newFakePublisher(), 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, relay.Run(ctx), context.Canceled)
}

func TestNextWaitBacksOffOnlyOnFailure(t *testing.T) {
	base := 500 * time.Millisecond
	require.Equal(t, base, nextWait(8*time.Second, base, false))
	require.Equal(t, time.Second, nextWait(base, base, true))
	require.Equal(t, maxIdleWait, nextWait(8*time.Second, base, true))

	d := withJitter(time.Second)
	require.GreaterOrEqual(t, d, time.Second)
	require.Less(t, d, time.Second+jitterWindow)
}

func TestRetryableClassifiesPublishErrors(t *testing.T) {
	require.True(t, retryable(errors.New("connection reset")))
	require.True(t, retryable(status.Error(codes.Unavailable, "try later")))
	require.False(t, retryable(status.Error(codes.PermissionDenied, "no access")))
	require.False(t, retryable(registry.NewNonRetryableError(errors.New("bad payload"))))
}

func newTestRelay(t *testing.T, store eventStore, pub topicPublisher, maxAttempts int) *Relay {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: testTopic})
	require.NoError(t, err)

	relay, err := NewRelay(RelayParams{
		Outbox:        config.OutboxConfig{BatchSize: 10, PollIntervalMS: 100, MaxAttempts: maxAttempts},
		Logger:        logger.Nop(),
		DB:            fakeTx{},
		PubSub:        fakeTopics{},
		Store:         store,
		Registry:      reg,
		OpenPublisher: func(string) topicPublisher { return pub },
	})
	require.NoError(t, err)
	return relay
}

func orderEvent(t *testing.T, orderID uuid.UUID, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:     1,
		EventID:     id.String(),
		EventType:   eventType,
		AggregateID: orderID,
		OccurredAt:  time.Now().UTC(),
		Data:        json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       payload,
	}
}

type fakeStore struct {
	rows             []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
	fetchedBelow     int
}

func (f *fakeStore) FetchUnpublishedForPublish(_ *gorm.DB, _ int, maxAttempts int) ([]models.OutboxEvent, error) {
	f.fetchedBelow = maxAttempts
	return f.rows, nil
}

func (f *fakeStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeTx struct{}

func (fakeTx) Ping(context.Context) error { return nil }

func (fakeTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeTopics struct{}

func (fakeTopics) Ping(context.Context) error { return nil }

func (fakeTopics) Publisher(string) *gcppubsub.Publisher { return nil }

// fakePublisher fails every message whose ordering key is in fail.
type fakePublisher struct {
	fail     map[string]error
	messages []*gcppubsub.Message
	resumed  []string
	stopped  bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{fail: make(map[string]error)}
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{err: f.fail[msg.OrderingKey]}
}

func (f *fakePublisher) ResumePublish(key string) { f.resumed = append(f.resumed, key) }

func (f *fakePublisher) Stop() { f.stopped = true }

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	return "", r.err
}
