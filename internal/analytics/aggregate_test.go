package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventdesk/internal/model"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func ev(id string, tag model.Tag, minute int) model.Event {
	return model.Event{ID: id, Name: "event " + id, Tag: tag, CreatedAt: t0.Add(time.Duration(minute) * time.Minute)}
}

func participantsFor(eventID string, n int) []model.Participant {
	out := make([]model.Participant, n)
	for i := range out {
		out[i] = model.Participant{ID: fmt.Sprintf("%s-%d", eventID, i), EventID: eventID}
	}
	return out
}

func TestAggregate(t *testing.T) {
	// Deliberately out of creation order.
	events := []model.Event{
		ev("c", model.TagTech, 3),
		ev("a", model.TagNonTech, 1),
		ev("b", model.TagTech, 2),
		ev("d", model.TagExternalTalk, 4),
	}
	var ps []model.Participant
	ps = append(ps, participantsFor("a", 2)...)
	ps = append(ps, participantsFor("b", 3)...)
	ps = append(ps, participantsFor("c", 5)...)
	ps = append(ps, participantsFor("ghost", 7)...)

	r := Aggregate(events, ps)

	assert.Equal(t, 4, r.TotalEvents)
	assert.Equal(t, 10, r.TotalParticipants)
	assert.Equal(t, []EventCount{
		{EventID: "a", Name: "event a", Participants: 2},
		{EventID: "b", Name: "event b", Participants: 3},
		{EventID: "c", Name: "event c", Participants: 5},
		{EventID: "d", Name: "event d", Participants: 0},
	}, r.ParticipantsByEvent)

	assert.Equal(t, []TagCount{
		{Tag: model.TagNonTech, Count: 1, Percent: 25},
		{Tag: model.TagTech, Count: 2, Percent: 50},
		{Tag: model.TagExternalTalk, Count: 1, Percent: 25},
	}, r.EventsByTag)

	assert.Equal(t, []TagCount{
		{Tag: model.TagNonTech, Count: 2, Percent: 20},
		{Tag: model.TagTech, Count: 8, Percent: 80},
		{Tag: model.TagExternalTalk, Count: 0, Percent: 0},
	}, r.ParticipantsByTag)
}

func TestAggregateSumsMatch(t *testing.T) {
	tags := model.Tags
	var events []model.Event
	var ps []model.Participant
	const n = 12
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("e%02d", i)
		events = append(events, ev(id, tags[i%len(tags)], i))
		ps = append(ps, participantsFor(id, i*3%7)...)
	}

	r := Aggregate(events, ps)
	require.Len(t, r.ParticipantsByEvent, n)

	sumEvents, sumByTag, sumEventsByTag := 0, 0, 0
	for _, c := range r.ParticipantsByEvent {
		sumEvents += c.Participants
	}
	for _, c := range r.ParticipantsByTag {
		sumByTag += c.Count
	}
	for _, c := range r.EventsByTag {
		sumEventsByTag += c.Count
	}
	assert.Equal(t, len(ps), sumEvents)
	assert.Equal(t, len(ps), sumByTag)
	assert.Equal(t, n, sumEventsByTag)
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil, nil)
	assert.Zero(t, r.TotalEvents)
	assert.NotNil(t, r.ParticipantsByEvent)
	assert.NotNil(t, r.EventsByTag)
	assert.NotNil(t, r.ParticipantsByTag)

	r = Aggregate([]model.Event{ev("x", model.TagTech, 0)}, nil)
	require.Len(t, r.ParticipantsByTag, 1)
	assert.Equal(t, TagCount{Tag: model.TagTech, Count: 0, Percent: 0}, r.ParticipantsByTag[0])
}
