package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/eventdesk/internal/model"
)

// EventRepo manages persistence for events.  Every method takes the
// owner's user id and filters on it, so callers never see or touch rows
// belonging to another organizer.
type EventRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db, now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *EventRepo) WithClock(now func() time.Time) *EventRepo {
	r.now = now
	return r
}

// NewEventRecord builds a storable event from client input.  The id,
// owner and both timestamps are assigned here and nowhere else.
func NewEventRecord(in model.EventInput, ownerID string, now time.Time) model.Event {
	in.Normalize()
	ts := now.UTC().Truncate(time.Microsecond)
	return model.Event{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Date:        in.Date,
		Time:        in.Time,
		Description: in.Description,
		Capacity:    int(in.Capacity),
		Tag:         in.Tag,
		UserID:      ownerID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

const eventColumns = "id, name, event_date, event_time, description, capacity, tag, user_id, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (model.Event, error) {
	var e model.Event
	var tag string
	err := s.Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Description, &e.Capacity, &tag, &e.UserID, &e.CreatedAt, &e.UpdatedAt)
	e.Tag = model.Tag(tag)
	return e, err
}

// Create stores a new event for ownerID and returns it.
func (r *EventRepo) Create(ctx context.Context, ownerID string, in model.EventInput) (model.Event, error) {
	e := NewEventRecord(in, ownerID, r.now())
	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Name, e.Date, e.Time, e.Description, e.Capacity, string(e.Tag), e.UserID, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Get returns a single event owned by ownerID or ErrEventNotFound.
func (r *EventRepo) Get(ctx context.Context, ownerID, id string) (model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND user_id = ?`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	return e, err
}

// ListByOwner returns the owner's events, newest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE user_id = ? ORDER BY created_at DESC, id`, ownerID)
}

// ListByOwnerOldestFirst returns the owner's events ordered by creation
// time ascending, the order analytics reports use.
func (r *EventRepo) ListByOwnerOldestFirst(ctx context.Context, ownerID string) ([]model.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE user_id = ? ORDER BY created_at ASC, id`, ownerID)
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of an owned event and restamps
// updated_at.  The stored row is returned.
func (r *EventRepo) Update(ctx context.Context, ownerID, id string, in model.EventInput) (model.Event, error) {
	in.Normalize()
	// Existence is checked first: MySQL reports zero affected rows when
	// the new values equal the old ones.
	if _, err := r.Get(ctx, ownerID, id); err != nil {
		return model.Event{}, err
	}
	const q = `UPDATE events
	           SET name = ?, event_date = ?, event_time = ?, description = ?, capacity = ?, tag = ?, updated_at = ?
	           WHERE id = ? AND user_id = ?`
	_, err := r.db.ExecContext(ctx, q,
		in.Name, in.Date, in.Time, in.Description, int(in.Capacity), string(in.Tag), stamp(r.now), id, ownerID)
	if err != nil {
		return model.Event{}, err
	}
	return r.Get(ctx, ownerID, id)
}

// Delete removes an owned event.  Participants are removed by the
// foreign key cascade.
func (r *EventRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
