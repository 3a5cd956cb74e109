package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Tag classifies an event for filtering and analytics.  Only the four
// values listed in Tags are accepted by the store.
type Tag string

const (
	TagTech           Tag = "Tech"
	TagNonTech        Tag = "Non-Tech"
	TagClubActivities Tag = "Club Activities"
	TagExternalTalk   Tag = "External Talk"
)

// Tags lists every accepted tag in display order.
var Tags = []Tag{TagTech, TagNonTech, TagClubActivities, TagExternalTalk}

// Valid reports whether t is one of the enumerated tags.
func (t Tag) Valid() bool {
	for _, v := range Tags {
		if v == t {
			return true
		}
	}
	return false
}

// ParseTags splits comma separated tag lists (as sent in query strings)
// and drops blanks and unknown values.  Duplicates are collapsed.
func ParseTags(raw ...string) []Tag {
	seen := make(map[Tag]bool)
	var out []Tag
	for _, r := range raw {
		for _, p := range strings.Split(r, ",") {
			t := Tag(strings.TrimSpace(p))
			if !t.Valid() || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Event represents an organizer-defined activity.  Capacity bounds the
// number of participants that can be checked in.
//
// Fields:
//
//	ID          – opaque unique key (UUID).
//	Name        – display name.
//	Date        – calendar date, YYYY-MM-DD.
//	Time        – start time, HH:MM.
//	Description – free text.
//	Capacity    – maximum participants, always > 0.
//	Tag         – category.
//	UserID      – owning user.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last modification, restamped on every update.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	Tag         Tag       `json:"tag"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventInput carries the client-editable fields of an event.  It is
// used for both create and update; identifiers, owner and timestamps
// are never taken from clients.
type EventInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string   `json:"time" validate:"required,datetime=15:04"`
	Description string   `json:"description" validate:"required"`
	Capacity    Capacity `json:"capacity"`
	Tag         Tag      `json:"tag" validate:"required,oneof=Tech Non-Tech 'Club Activities' 'External Talk'"`
}

// Normalize trims text fields and coerces capacity upward to 1.
func (in *EventInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Description = strings.TrimSpace(in.Description)
	in.Capacity = Capacity(CoerceCapacity(int(in.Capacity)))
}

// MaxCapacity is the largest capacity the events table can hold.
const MaxCapacity = math.MaxInt32

// CoerceCapacity returns n limited to [1, MaxCapacity].
func CoerceCapacity(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxCapacity {
		return MaxCapacity
	}
	return n
}

// ParseCapacity converts user input into a capacity.  Non-numeric input
// yields 1, mirroring CoerceCapacity for numbers below 1.
func ParseCapacity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return CoerceCapacity(n)
}

// Capacity is an event capacity as submitted by a form.  It decodes
// from a JSON number or a numeric string; anything else, including
// values below 1, becomes 1.  Larger values are capped at MaxCapacity.
type Capacity int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Capacity) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f > MaxCapacity {
			f = MaxCapacity
		}
		*c = Capacity(CoerceCapacity(int(f)))
		return nil
	}
	*c = Capacity(ParseCapacity(s))
	return nil
}

// FilterByTags narrows events to those whose tag is selected.  An empty
// selection returns the input unchanged.
func FilterByTags(events []Event, selected []Tag) []Event {
	if len(selected) == 0 {
		return events
	}
	want := make(map[Tag]bool, len(selected))
	for _, t := range selected {
		want[t] = true
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if want[e.Tag] {
			out = append(out, e)
		}
	}
	return out
}
