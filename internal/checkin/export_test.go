package checkin

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventdesk/internal/model"
)

func TestWriteCSV(t *testing.T) {
	base := time.Date(2025, 3, 14, 18, 5, 9, 0, time.UTC)
	participants := []model.Participant{
		{TicketNumber: "T-1", CreatedAt: base},
		{TicketNumber: "has, comma", CreatedAt: base.Add(time.Minute)},
		{TicketNumber: "T-1", CreatedAt: base.Add(-12 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, participants, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Ticket Number", "Registration Time"}, rows[0])
	assert.Equal(t, []string{"T-1", "3/14/2025, 6:05:09 PM"}, rows[1])
	assert.Equal(t, []string{"has, comma", "3/14/2025, 6:06:09 PM"}, rows[2])
	assert.Equal(t, []string{"T-1", "3/14/2025, 6:05:09 AM"}, rows[3], "rows keep fetch order")
}

func TestWriteCSVEmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, time.UTC))
	assert.Equal(t, "Ticket Number,Registration Time\n", buf.String())
}

func TestWriteCSVUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.Participant{
		{TicketNumber: "X", CreatedAt: time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)},
	}, loc))
	assert.Contains(t, buf.String(), "X,\"1/2/2025, 1:30:00 AM\"")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "Go Night-participants.csv", ExportFilename("Go Night"))
	assert.Equal(t, "ab-participants.csv", ExportFilename(`a/"b`))
	assert.Equal(t, "event-participants.csv", ExportFilename("  "))
}
