package model

import "time"

// Participant is a single check-in record against an event.  Rows are
// created on check-in, never updated, and removed only when their event
// is deleted.  TicketNumber is free text (roll number or scanned code)
// and is not unique: the same ticket may be checked in more than once.
type Participant struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	TicketNumber string    `json:"ticket_number"`
	CreatedAt    time.Time `json:"created_at"`
}
