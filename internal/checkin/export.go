package checkin

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/iliyamo/eventdesk/internal/model"
)

// RegistrationTimeLayout renders registration times the way attendance
// sheets show them, e.g. "3/14/2025, 6:05:09 PM".
const RegistrationTimeLayout = "1/2/2006, 3:04:05 PM"

var csvHeader = []string{"Ticket Number", "Registration Time"}

// WriteCSV writes the attendance sheet for participants in the order
// given.  Times are shown in loc; a nil loc means UTC.
func WriteCSV(w io.Writer, participants []model.Participant, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range participants {
		row := []string{p.TicketNumber, p.CreatedAt.In(loc).Format(RegistrationTimeLayout)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var filenameReplacer = strings.NewReplacer("/", "", `\`, "", `"`, "", "\r", "", "\n", "")

// ExportFilename returns the download name for an event's sheet.
func ExportFilename(eventName string) string {
	name := strings.TrimSpace(filenameReplacer.Replace(eventName))
	if name == "" {
		name = "event"
	}
	return name + "-participants.csv"
}
