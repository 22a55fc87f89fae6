package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/config"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/metrics"
	"github.com/baanfurniture/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultBaseAttempts   = 10
	maxIdleWait           = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher is the part of *pubsub.Publisher the relay drives.
type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// orderEventTypes lists every event the relay publishes.
var orderEventTypes = []enums.OutboxEventType{
	enums.EventOrderCreated,
	enums.EventOrderStatusChanged,
	enums.EventInstallmentPaid,
}

// attemptBudget is how many publish attempts a row of type t gets before it
// is parked. Installment payments settle money downstream and get twice the
// base budget.
func attemptBudget(t enums.OutboxEventType, base int) int {
	if t == enums.EventInstallmentPaid {
		return base * 2
	}
	return base
}

// outcome is what one relay attempt did with a row.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeParked
	outcomeHeld
)

func (o outcome) String() string {
	switch o {
	case outcomePublished:
		return "published"
	case outcomeRetry:
		return "retry"
	case outcomeParked:
		return "parked"
	case outcomeHeld:
		return "held"
	default:
		return "unknown"
	}
}

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	PubSub   topicSource
	Store    eventStore
	Registry eventResolver
	Metrics  *metrics.OutboxMetrics
	// OpenPublisher overrides how a topic publisher is created. Defaults to
	// an ordered publisher from PubSub.
	OpenPublisher func(topic string) topicPublisher
}

// Relay moves committed order events from the outbox to Pub/Sub. Events of
// one order share an ordering key so subscribers see them in commit order.
type Relay struct {
	logg         *logger.Logger
	db           txRunner
	pubsub       topicSource
	store        eventStore
	registry     eventResolver
	metrics      *metrics.OutboxMetrics
	open         func(topic string) topicPublisher
	publishers   map[string]topicPublisher
	batchSize    int
	baseAttempts int
	parkAt       int
	poll         time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	open := p.OpenPublisher
	if open == nil {
		open = orderedPublishers(p.PubSub)
	}

	base := p.Outbox.MaxAttempts
	if base <= 0 {
		base = defaultBaseAttempts
	}
	// Rows are fetched while below the largest budget and parked at it, so a
	// parked row is never fetched again whatever its type.
	parkAt := base
	for _, t := range orderEventTypes {
		parkAt = max(parkAt, attemptBudget(t, base))
	}

	r := &Relay{
		logg:         p.Logger,
		db:           p.DB,
		pubsub:       p.PubSub,
		store:        p.Store,
		registry:     p.Registry,
		metrics:      p.Metrics,
		open:         open,
		publishers:   make(map[string]topicPublisher),
		batchSize:    p.Outbox.BatchSize,
		baseAttempts: base,
		parkAt:       parkAt,
		poll:         time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.poll <= 0 {
		r.poll = defaultPollInterval
	}
	return r, nil
}

// Run relays batches until ctx is cancelled. A batch that published every
// row of a full page is followed immediately by the next one. Batch errors
// back off up to maxIdleWait.
func (r *Relay) Run(ctx context.Context) error {
	defer r.stopPublishers()

	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	wait := r.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		published, err := r.relayBatch(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox relay batch failed", err)
		}
		wait = nextWait(wait, r.poll, err != nil)
		if err == nil && published >= r.batchSize {
			continue
		}
		if err := sleepCtx(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// relayBatch claims one batch of rows and settles each of them in the same
// transaction. It returns how many rows were published.
func (r *Relay) relayBatch(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveBatch(time.Since(started)) }()

	var published int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.parkAt)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		// Orders with a failed event in this batch; their later events wait
		// for the next batch so the ordering key is not overtaken.
		held := make(map[uuid.UUID]struct{})
		for _, row := range rows {
			got, err := r.relayOne(ctx, tx, row, held)
			if err != nil {
				return err
			}
			if got == outcomePublished {
				published++
			}
		}
		return nil
	})
	return published, err
}

// relayOne publishes one row and records the outcome. Only storage errors are
// returned; publish failures are recorded on the row.
func (r *Relay) relayOne(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, held map[uuid.UUID]struct{}) (outcome, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    string(row.EventType),
		"order_id":      row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	if _, ok := held[row.AggregateID]; ok {
		r.logg.Debug(ctx, "outbox event held behind earlier failure of the same order")
		return outcomeHeld, nil
	}

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return outcomeParked, r.park(ctx, tx, row, err)
	}

	err = r.publish(ctx, row, resolved)
	switch {
	case err == nil:
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark outbox %s published: %w", row.ID, err)
		}
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Info(ctx, "outbox event published")
		return outcomePublished, nil
	case !retryable(err):
		return outcomeParked, r.park(ctx, tx, row, err)
	case row.AttemptCount+1 >= attemptBudget(row.EventType, r.baseAttempts):
		return outcomeParked, r.park(ctx, tx, row, fmt.Errorf("attempt budget spent: %w", err))
	}

	held[row.AggregateID] = struct{}{}
	if err := r.store.MarkFailedTx(tx, row.ID, err); err != nil {
		return outcomeRetry, fmt.Errorf("mark outbox %s failed: %w", row.ID, err)
	}
	r.metrics.IncFailed(string(row.EventType), false)
	r.logg.Error(ctx, "outbox publish failed, will retry", err)
	return outcomeRetry, nil
}

func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, cause error) error {
	if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.parkAt); err != nil {
		return fmt.Errorf("park outbox %s: %w", row.ID, err)
	}
	r.metrics.IncFailed(string(row.EventType), true)
	r.logg.Error(ctx, "outbox event parked", cause)
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}

	key := row.AggregateID.String()
	msg := &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":    resolved.Envelope.EventID,
			"event_type":  string(row.EventType),
			"order_id":    key,
			"occurred_at": resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(errors.New("publisher returned no result"))
	}
	if _, err := result.Get(publishCtx); err != nil {
		// A failed key is paused by the client until resumed.
		pub.ResumePublish(key)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (r *Relay) publisher(topic string) topicPublisher {
	if pub, ok := r.publishers[topic]; ok {
		return pub
	}
	pub := r.open(topic)
	if pub != nil {
		r.publishers[topic] = pub
	}
	return pub
}

func (r *Relay) stopPublishers() {
	for topic, pub := range r.publishers {
		pub.Stop()
		delete(r.publishers, topic)
	}
}

// retryable reports whether another attempt could succeed. Status codes that
// mean Pub/Sub rejected the message or topic are final.
func retryable(err error) bool {
	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied:
		return false
	default:
		return true
	}
}

func nextWait(prev, base time.Duration, failed bool) time.Duration {
	if !failed {
		return base
	}
	if prev < base {
		prev = base
	}
	return min(prev*2, maxIdleWait)
}

func withJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func orderedPublishers(src topicSource) func(topic string) topicPublisher {
	return func(topic string) topicPublisher {
		pub := src.Publisher(topic)
		if pub == nil {
			return nil
		}
		pub.EnableMessageOrdering = true
		return gcpPublisher{Publisher: pub}
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
