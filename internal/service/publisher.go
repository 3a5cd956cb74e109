// Package service provides the RabbitMQ publisher for domain events.
// Events are queued in memory and sent by a background worker, so a slow
// or unreachable broker never holds up the request that produced them.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iliyamo/eventdesk/internal/logging"
	q "github.com/iliyamo/eventdesk/internal/queue"
)

// ErrBacklogFull is returned by PublishCheckIn when the in-memory queue is
// full; the event is dropped.
var ErrBacklogFull = errors.New("publish backlog full")

// BreakerConfig tunes the circuit breaker around the broker and the
// worker that feeds it.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	Timeout          time.Duration // how long the breaker stays open
	DialTimeout      time.Duration // TCP connect timeout per attempt, default 2s
	Backlog          int           // queued events before drops, default 256
}

// Publisher sends check-in events to RabbitMQ.  Every send runs through a
// circuit breaker so an unreachable broker costs one dial attempt per
// Timeout instead of one per event.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	cb          *gobreaker.CircuitBreaker[any]
	send        func(ctx context.Context, queue string, body []byte) error
	backlog     chan q.CheckInRecordedEvent
	onFailure   func()
	log         zerolog.Logger
}

// NewPublisher returns a publisher for the broker at url.  Nothing is sent
// until Run is started.
func NewPublisher(url string, cfg BreakerConfig) *Publisher {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 256
	}
	p := &Publisher{
		url:         url,
		dialTimeout: cfg.DialTimeout,
		backlog:     make(chan q.CheckInRecordedEvent, cfg.Backlog),
		log:         logging.WithComponent("publisher"),
	}
	p.send = p.dialAndSend
	p.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

// OnFailure registers fn to be called for every event the worker could not
// deliver.  It must be called before Run.
func (p *Publisher) OnFailure(fn func()) { p.onFailure = fn }

// State reports the breaker state ("closed", "open", "half-open").
func (p *Publisher) State() string { return p.cb.State().String() }

// PublishCheckIn queues ev for the participant.checked_in queue.  It never
// blocks; when the backlog is full the event is dropped and ErrBacklogFull
// returned.
func (p *Publisher) PublishCheckIn(_ context.Context, ev q.CheckInRecordedEvent) error {
	select {
	case p.backlog <- ev:
		return nil
	default:
		p.log.Warn().Str("event_id", ev.EventID).Msg("publish backlog full, event dropped")
		return ErrBacklogFull
	}
}

// Run sends queued events until ctx is cancelled.  Events still queued at
// that point are discarded.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.backlog:
			if err := p.publish(ctx, ev); err != nil && p.onFailure != nil {
				p.onFailure()
			}
		}
	}
}

// publish sends one event through the breaker.  Messages are persistent.
func (p *Publisher) publish(ctx context.Context, ev q.CheckInRecordedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("marshal event failed")
		return err
	}
	_, err = p.cb.Execute(func() (any, error) {
		return nil, p.send(ctx, q.CheckInQueue, body)
	})
	if err != nil {
		p.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("publish failed")
	}
	return err
}

func (p *Publisher) dialAndSend(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	)
}
