package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/eventdesk/internal/model"
)

// ParticipantRepo records check-ins.  Participants are append-only: they
// are never updated and disappear only when their event is deleted.
type ParticipantRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewParticipantRepo returns a new ParticipantRepo bound to the given database.
func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db, now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *ParticipantRepo) WithClock(now func() time.Time) *ParticipantRepo {
	r.now = now
	return r
}

// NewParticipantRecord assigns the id and registration time of a new
// participant.  The ticket is stored as given.
func NewParticipantRecord(eventID, ticket string, now time.Time) model.Participant {
	return model.Participant{
		ID:           uuid.NewString(),
		EventID:      eventID,
		TicketNumber: ticket,
		CreatedAt:    now.UTC().Truncate(time.Microsecond),
	}
}

// CheckIn registers ticket for the owned event if it still has room.
//
// The capacity check and the insert happen in one transaction.  The
// no-op UPDATE takes the event's row lock first, so concurrent check-ins
// for the same event queue behind each other and each one sees the
// count left by the previous commit.  When the event is at capacity
// ErrEventFull is returned and nothing is written.
func (r *ParticipantRepo) CheckIn(ctx context.Context, ownerID, eventID, ticket string) (model.Participant, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Participant{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET capacity = capacity WHERE id = ? AND user_id = ?`, eventID, ownerID); err != nil {
		return model.Participant{}, err
	}

	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = ? AND user_id = ?`, eventID, ownerID).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, ErrEventNotFound
	}
	if err != nil {
		return model.Participant{}, err
	}
	count, err := countByEvent(ctx, tx, eventID)
	if err != nil {
		return model.Participant{}, err
	}
	if count >= capacity {
		return model.Participant{}, ErrEventFull
	}

	p := NewParticipantRecord(eventID, ticket, r.now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO participants (id, event_id, ticket_number, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.EventID, p.TicketNumber, p.CreatedAt); err != nil {
		return model.Participant{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Participant{}, err
	}
	committed = true
	return p, nil
}

// ListByEvent returns the participants of an owned event in
// registration order.  An unknown or foreign event yields an empty list;
// callers that need to tell the two apart load the event first.
func (r *ParticipantRepo) ListByEvent(ctx context.Context, ownerID, eventID string) ([]model.Participant, error) {
	const q = `SELECT p.id, p.event_id, p.ticket_number, p.created_at
	           FROM participants p
	           JOIN events e ON e.id = p.event_id
	           WHERE p.event_id = ? AND e.user_id = ?
	           ORDER BY p.created_at ASC, p.id`
	return r.list(ctx, q, eventID, ownerID)
}

// ListByOwner returns every participant of every event owned by ownerID.
func (r *ParticipantRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Participant, error) {
	const q = `SELECT p.id, p.event_id, p.ticket_number, p.created_at
	           FROM participants p
	           JOIN events e ON e.id = p.event_id
	           WHERE e.user_id = ?
	           ORDER BY p.created_at ASC, p.id`
	return r.list(ctx, q, ownerID)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// countByEvent returns the participant count of an event, regardless of
// owner.
func countByEvent(ctx context.Context, q rowQuerier, eventID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}

func (r *ParticipantRepo) list(ctx context.Context, q string, args ...any) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Participant, 0)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.TicketNumber, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
