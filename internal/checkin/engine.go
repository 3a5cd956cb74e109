package checkin

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/eventdesk/internal/logging"
	"github.com/iliyamo/eventdesk/internal/metrics"
	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/queue"
	"github.com/iliyamo/eventdesk/internal/repository"
	"github.com/iliyamo/eventdesk/internal/utils"
)

var (
	// ErrEmptyTicket is returned when the ticket number is blank.
	ErrEmptyTicket = errors.New("ticket number is required")
	// ErrBadScanCode is returned when a scanned code is not exactly 16
	// characters long.
	ErrBadScanCode = errors.New("scanned code must be 16 characters")
	// ErrBadChannel is returned for an unknown input channel.
	ErrBadChannel = errors.New("channel must be manual or scan")
)

// Channel identifies how a ticket number was entered.
type Channel string

const (
	Manual Channel = "manual"
	Scan   Channel = "scan"
)

// ParseChannel maps user input to a Channel.  Blank input means Manual.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case "", Manual:
		return Manual, nil
	case Scan:
		return Scan, nil
	}
	return "", ErrBadChannel
}

// EventStore loads owned events.
type EventStore interface {
	Get(ctx context.Context, ownerID, id string) (model.Event, error)
}

// ParticipantStore records and lists participants.  CheckIn must enforce
// capacity atomically and return repository.ErrEventFull when the event
// has no room.
type ParticipantStore interface {
	CheckIn(ctx context.Context, ownerID, eventID, ticket string) (model.Participant, error)
	ListByEvent(ctx context.Context, ownerID, eventID string) ([]model.Participant, error)
}

// Publisher forwards check-in events to the broker.
type Publisher interface {
	PublishCheckIn(ctx context.Context, ev queue.CheckInRecordedEvent) error
}

// Broadcaster pushes live updates to watchers of an event.
type Broadcaster interface {
	Broadcast(eventID string, payload any)
}

// Invalidator drops cached views of an owner's data.
type Invalidator interface {
	Invalidate(ctx context.Context, ownerID string)
}

// Recorder counts check-in attempts.
type Recorder interface {
	ObserveCheckIn(channel, outcome string)
	PublishFailed()
}

// Roster is an event together with its participants in registration
// order.
type Roster struct {
	Event        model.Event         `json:"event"`
	Participants []model.Participant `json:"participants"`
	Count        int                 `json:"count"`
	Accepting    bool                `json:"accepting"`
}

// Gate returns the capacity gate for the roster.
func (r Roster) Gate() Gate {
	return Gate{Capacity: r.Event.Capacity, Count: r.Count}
}

// LiveUpdate is the message streamed to live-count watchers.
type LiveUpdate struct {
	EventID   string `json:"event_id"`
	Count     int    `json:"count"`
	Capacity  int    `json:"capacity"`
	Accepting bool   `json:"accepting"`
}

// Update returns the live message describing r.
func (r Roster) Update() LiveUpdate {
	return LiveUpdate{EventID: r.Event.ID, Count: r.Count, Capacity: r.Event.Capacity, Accepting: r.Accepting}
}

// Result is the outcome of a successful check-in.
type Result struct {
	Participant model.Participant `json:"participant"`
	Roster
}

// Engine coordinates registration.  Publisher, Broadcaster, Invalidator
// and Recorder are optional.
type Engine struct {
	events       EventStore
	participants ParticipantStore
	publisher    Publisher
	broadcaster  Broadcaster
	invalidator  Invalidator
	recorder     Recorder
}

// Option configures an Engine.
type Option func(*Engine)

func WithPublisher(p Publisher) Option     { return func(e *Engine) { e.publisher = p } }
func WithBroadcaster(b Broadcaster) Option { return func(e *Engine) { e.broadcaster = b } }
func WithRecorder(r Recorder) Option       { return func(e *Engine) { e.recorder = r } }
func WithInvalidator(i Invalidator) Option { return func(e *Engine) { e.invalidator = i } }

// NewEngine wires an engine over the given stores.
func NewEngine(events EventStore, participants ParticipantStore, opts ...Option) *Engine {
	e := &Engine{events: events, participants: participants}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Roster loads the owned event with its participants.
func (e *Engine) Roster(ctx context.Context, ownerID, eventID string) (Roster, error) {
	ev, err := e.events.Get(ctx, ownerID, eventID)
	if err != nil {
		return Roster{}, err
	}
	ps, err := e.participants.ListByEvent(ctx, ownerID, eventID)
	if err != nil {
		return Roster{}, err
	}
	g := Gate{Capacity: ev.Capacity, Count: len(ps)}
	return Roster{Event: ev, Participants: ps, Count: g.Count, Accepting: g.Open()}, nil
}

// CheckIn registers ticket for the owned event through channel.
//
// Manual tickets are trimmed and must not be blank.  Scanned tickets are
// stored verbatim and must be exactly 16 characters, spaces included.
// Registration goes through the store's atomic capacity check for both
// channels, so a full event yields repository.ErrEventFull and no row.
// On success the roster is re-read and returned.  Broker, live, cache
// and metrics side effects never fail the call.
func (e *Engine) CheckIn(ctx context.Context, ownerID, eventID, ticket string, channel Channel) (Result, error) {
	if channel == Scan {
		if utf8.RuneCountInString(ticket) != utils.ScanCodeLength {
			e.observe(channel, metrics.OutcomeInvalid)
			return Result{}, ErrBadScanCode
		}
	} else {
		ticket = strings.TrimSpace(ticket)
	}
	if strings.TrimSpace(ticket) == "" {
		e.observe(channel, metrics.OutcomeInvalid)
		return Result{}, ErrEmptyTicket
	}

	log := logging.Ctx(ctx)
	p, err := e.participants.CheckIn(ctx, ownerID, eventID, ticket)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrEventFull):
		e.observe(channel, metrics.OutcomeFull)
		log.Info().Str("event_id", eventID).Str("channel", string(channel)).Msg("check-in refused, event is full")
		return Result{}, err
	case errors.Is(err, repository.ErrEventNotFound):
		e.observe(channel, metrics.OutcomeNotFound)
		return Result{}, err
	default:
		e.observe(channel, metrics.OutcomeError)
		log.Error().Err(err).Str("event_id", eventID).Msg("check-in failed")
		return Result{}, err
	}
	e.observe(channel, metrics.OutcomeAccepted)

	roster, err := e.Roster(ctx, ownerID, eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("re-fetch participants after check-in")
		return Result{}, err
	}
	log.Info().Str("event_id", eventID).Str("channel", string(channel)).
		Int("count", roster.Count).Int("capacity", roster.Event.Capacity).Msg("participant checked in")

	e.OwnerChanged(ctx, ownerID)
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(eventID, roster.Update())
	}
	if e.publisher != nil {
		ev := queue.CheckInRecordedEvent{
			ParticipantID: p.ID,
			EventID:       eventID,
			EventName:     roster.Event.Name,
			OwnerID:       ownerID,
			TicketNumber:  p.TicketNumber,
			Channel:       string(channel),
			Count:         roster.Count,
			Capacity:      roster.Event.Capacity,
			RecordedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := e.publisher.PublishCheckIn(context.WithoutCancel(ctx), ev); err != nil {
			log.Warn().Err(err).Str("event_id", eventID).Msg("publish check-in event")
			if e.recorder != nil {
				e.recorder.PublishFailed()
			}
		}
	}
	return Result{Participant: p, Roster: roster}, nil
}

// OwnerChanged drops cached views of ownerID's events and participants.
// Event handlers call it after every create, update and delete.
func (e *Engine) OwnerChanged(ctx context.Context, ownerID string) {
	if e.invalidator != nil {
		e.invalidator.Invalidate(ctx, ownerID)
	}
}

func (e *Engine) observe(channel Channel, outcome string) {
	if e.recorder != nil {
		e.recorder.ObserveCheckIn(string(channel), outcome)
	}
}
