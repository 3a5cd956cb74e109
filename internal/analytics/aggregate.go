// Package analytics summarizes an organizer's events and attendance.
package analytics

import (
	"math"
	"sort"

	"github.com/iliyamo/eventdesk/internal/model"
)

// EventCount is the number of participants of one event.
type EventCount struct {
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
}

// TagCount is a slice of a per-tag distribution.  Percent is the share
// of the distribution total, rounded to one decimal.
type TagCount struct {
	Tag     model.Tag `json:"tag"`
	Count   int       `json:"count"`
	Percent float64   `json:"percent"`
}

// Report is the analytics payload.
type Report struct {
	TotalEvents         int          `json:"total_events"`
	TotalParticipants   int          `json:"total_participants"`
	ParticipantsByEvent []EventCount `json:"participants_by_event"`
	EventsByTag         []TagCount   `json:"events_by_tag"`
	ParticipantsByTag   []TagCount   `json:"participants_by_tag"`
}

// Aggregate builds a Report.  Events are reported oldest first; tags
// appear in the order their first event does.  Participants that do not
// belong to one of events are ignored, so TotalParticipants always equals
// the sum of the per-event counts.
func Aggregate(events []model.Event, participants []model.Participant) Report {
	ordered := make([]model.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	perEvent := make(map[string]int, len(ordered))
	for _, e := range ordered {
		perEvent[e.ID] = 0
	}
	total := 0
	for _, p := range participants {
		if _, ok := perEvent[p.EventID]; ok {
			perEvent[p.EventID]++
			total++
		}
	}

	r := Report{
		TotalEvents:         len(ordered),
		TotalParticipants:   total,
		ParticipantsByEvent: make([]EventCount, 0, len(ordered)),
		EventsByTag:         []TagCount{},
		ParticipantsByTag:   []TagCount{},
	}
	eventsIdx := make(map[model.Tag]int)
	for _, e := range ordered {
		n := perEvent[e.ID]
		r.ParticipantsByEvent = append(r.ParticipantsByEvent, EventCount{EventID: e.ID, Name: e.Name, Participants: n})

		i, ok := eventsIdx[e.Tag]
		if !ok {
			i = len(r.EventsByTag)
			eventsIdx[e.Tag] = i
			r.EventsByTag = append(r.EventsByTag, TagCount{Tag: e.Tag})
			r.ParticipantsByTag = append(r.ParticipantsByTag, TagCount{Tag: e.Tag})
		}
		r.EventsByTag[i].Count++
		r.ParticipantsByTag[i].Count += n
	}
	fillPercent(r.EventsByTag, len(ordered))
	fillPercent(r.ParticipantsByTag, total)
	return r
}

func fillPercent(counts []TagCount, total int) {
	for i := range counts {
		if total == 0 {
			counts[i].Percent = 0
			continue
		}
		counts[i].Percent = math.Round(float64(counts[i].Count)*1000/float64(total)) / 10
	}
}
