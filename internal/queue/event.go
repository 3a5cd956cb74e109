// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// CheckInQueue is the durable queue check-in events are published to.
const CheckInQueue = "participant.checked_in"

// CheckInRecordedEvent is published after a participant has been
// admitted to an event.  It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type CheckInRecordedEvent struct {
	ParticipantID string `json:"participant_id"`
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name"`
	OwnerID       string `json:"owner_id"`
	TicketNumber  string `json:"ticket_number"`
	Channel       string `json:"channel"`
	Count         int    `json:"count"`
	Capacity      int    `json:"capacity"`
	RecordedAt    string `json:"recorded_at"`
}
