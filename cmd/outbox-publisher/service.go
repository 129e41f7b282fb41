package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/metrics"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

// publisher sends one message. Resume unblocks an ordering key after a
// failed publish so the next attempt for that order can go out.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Resume(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains outbox_events onto the order topic for the mailer.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     registryResolver
	dlq          dlqRepository
	metrics      *metrics.OutboxMetrics
	newPublisher publisherFactory
	publishers   map[string]publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	outboxCfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		newPublisher: factory,
		publishers:   map[string]publisher{},
		batchSize:    positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(outboxCfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		now:          time.Now,
	}, nil
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// Run polls until the context is canceled. Failed batches back off
// exponentially up to maxBackoff; a full batch is followed immediately by
// the next one.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		s.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	defer s.stopPublishers()

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		wait := s.pollInterval
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
		}

		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// batchTally counts dispatch outcomes for the batch summary log.
type batchTally map[string]int

func (t batchTally) total() int {
	n := 0
	for _, count := range t {
		n += count
	}
	return n
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	tally := batchTally{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		s.metrics.SetBatch(len(events))
		for _, event := range events {
			outcome, err := s.dispatch(ctx, tx, event)
			if err != nil {
				return err
			}
			tally[outcome]++
			s.metrics.Observe(string(event.EventType), outcome)
		}
		return nil
	})
	if tally.total() > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"published":     tally[metrics.OutboxPublished],
			"retried":       tally[metrics.OutboxRetried],
			"dead_lettered": tally[metrics.OutboxDeadLettered],
		}), "outbox batch drained")
	}
	return tally.total() > 0, err
}

// dispatch publishes one row and records its fate. The returned error is
// only set when bookkeeping fails, which aborts the batch transaction.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (string, error) {
	logCtx := s.eventContext(ctx, event)

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		reason := enums.OutboxDLQReasonNonRetryable
		if !event.EventType.IsValid() {
			reason = enums.OutboxDLQReasonUnknownEvent
		}
		return metrics.OutboxDeadLettered, s.deadLetter(logCtx, tx, event, reason, err)
	}

	rt := routeFor(event, resolved)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"topic":    rt.topic,
		"event_id": resolved.Envelope.EventID,
		"notify":   rt.attributes[outbox.AttrNotify],
	})

	err = s.publish(ctx, rt, event.Payload)
	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.logg.Info(logCtx, "outbox event published")
		return metrics.OutboxPublished, nil
	case errors.As(err, &nonRetry):
		return metrics.OutboxDeadLettered, s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	case event.AttemptCount+1 >= s.maxAttempts:
		terminal := fmt.Errorf("max publish attempts reached: %w", err)
		return metrics.OutboxDeadLettered, s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminal)
	}

	s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
		"attempt_count": event.AttemptCount + 1,
		"error":         err.Error(),
	}), "outbox publish failed, will retry")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return metrics.OutboxRetried, nil
}

// eventContext tags logs with the row and, for order events, the order id.
func (s *Service) eventContext(ctx context.Context, event models.OutboxEvent) context.Context {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    string(event.EventType),
		"attempt_count": event.AttemptCount,
	})
	if event.AggregateType == enums.AggregateOrder {
		return s.logg.WithOrderID(ctx, event.AggregateID.String())
	}
	return s.logg.WithUserID(ctx, event.AggregateID.String())
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": string(reason),
		"error":        cause.Error(),
	}), "outbox event moved to dlq")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, rt route, data []byte) error {
	pub := s.publisherFor(rt.topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", rt.topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:        data,
		Attributes:  rt.attributes,
		OrderingKey: rt.orderingKey,
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", rt.topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		if rt.orderingKey != "" {
			pub.Resume(rt.orderingKey)
		}
		return err
	}
	return nil
}

// publisherFor reuses one publisher per topic so batching and ordering
// state survive across rows.
func (s *Service) publisherFor(topic string) publisher {
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.newPublisher(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

func (s *Service) stopPublishers() {
	for topic, pub := range s.publishers {
		if stopper, ok := pub.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		delete(s.publishers, topic)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{pub: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.pub.Publish(ctx, msg)
}

func (p *gcpPublisher) Resume(orderingKey string) {
	p.pub.ResumePublish(orderingKey)
}

func (p *gcpPublisher) Stop() {
	p.pub.Stop()
}
