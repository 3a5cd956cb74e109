package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	got := ParseTags("Tech, Bogus ,Non-Tech", "Tech", "", "External Talk")
	assert.Equal(t, []Tag{TagTech, TagNonTech, TagExternalTalk}, got)
	assert.Empty(t, ParseTags())
}

func TestCapacityDecoding(t *testing.T) {
	cases := map[string]int{
		`{"capacity": 25}`:            25,
		`{"capacity": "40"}`:          40,
		`{"capacity": 0}`:             1,
		`{"capacity": -3}`:            1,
		`{"capacity": "abc"}`:         1,
		`{"capacity": ""}`:            1,
		`{"capacity": null}`:          1,
		`{"capacity": 12.7}`:          12,
		`{"capacity": 1e10}`:          MaxCapacity,
		`{"capacity": "99999999999"}`: MaxCapacity,
	}
	for body, want := range cases {
		var in EventInput
		require.NoError(t, json.Unmarshal([]byte(body), &in), body)
		assert.Equal(t, want, int(in.Capacity), body)
	}
}

func TestParseCapacity(t *testing.T) {
	assert.Equal(t, 1, ParseCapacity("nope"))
	assert.Equal(t, 1, ParseCapacity("0"))
	assert.Equal(t, 7, ParseCapacity(" 7 "))
	assert.Equal(t, MaxCapacity, ParseCapacity("99999999999"))
}

func TestEventInputNormalize(t *testing.T) {
	in := EventInput{Name: "  Talk ", Date: " 2025-01-01", Time: "10:00 ", Description: " d ", Capacity: 0}
	in.Normalize()
	assert.Equal(t, "Talk", in.Name)
	assert.Equal(t, "2025-01-01", in.Date)
	assert.Equal(t, "10:00", in.Time)
	assert.Equal(t, "d", in.Description)
	assert.Equal(t, Capacity(1), in.Capacity)
}

func TestFilterByTags(t *testing.T) {
	events := []Event{
		{ID: "1", Tag: TagTech},
		{ID: "2", Tag: TagNonTech},
		{ID: "3", Tag: TagTech},
		{ID: "4", Tag: TagClubActivities},
	}
	assert.Equal(t, events, FilterByTags(events, nil))

	got := FilterByTags(events, []Tag{TagTech, TagClubActivities})
	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "3", "4"}, ids)
	assert.Empty(t, FilterByTags(events, []Tag{TagExternalTalk}))
}

func TestTagValid(t *testing.T) {
	for _, tag := range Tags {
		assert.True(t, tag.Valid())
	}
	assert.False(t, Tag("tech").Valid())
}
