package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"veritas/internal/platform/kafka/producer"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. An optional
// Kafka sink mirrors events to a compliance topic.
type Publisher struct {
	store  Store
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool

	kafka      *producer.Producer
	kafkaTopic string
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithKafkaSink mirrors events to the given Kafka topic in addition to the
// store. Delivery failures are logged, never propagated: the store is the
// durable record, Kafka is the distribution channel.
func WithKafkaSink(kafka *producer.Producer, topic string) PublisherOption {
	return func(p *Publisher) {
		p.kafka = kafka
		p.kafkaTopic = topic
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		p.persist(context.Background(), event)
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) {
	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"event_id", event.ID,
			)
		}
	}
	p.mirror(event)
}

func (p *Publisher) mirror(event Event) {
	if p.kafka == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("failed to encode audit event", "error", err, "event_id", event.ID)
		}
		return
	}
	msg := &producer.Message{
		Topic: p.kafkaTopic,
		Key:   []byte(event.ID),
		Value: value,
	}
	if err := p.kafka.ProduceAsync(msg); err != nil && p.logger != nil {
		p.logger.Error("failed to publish audit event to kafka", "error", err, "event_id", event.ID)
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit records an audit event. In async mode the event is queued; if the
// queue is full it falls through to a synchronous write so compliance events
// are not dropped under load.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if p.async {
		select {
		case p.events <- event:
			return nil
		default:
		}
	}

	p.persist(ctx, event)
	return nil
}
