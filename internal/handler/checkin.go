package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/live"
	"github.com/iliyamo/eventdesk/internal/logging"
)

// CheckInHandler serves participant registration, the roster, CSV export
// and the live count stream of one event.
type CheckInHandler struct {
	Engine   *checkin.Engine
	Hub      *live.Hub
	ExportTZ *time.Location
}

func NewCheckInHandler(engine *checkin.Engine, hub *live.Hub, exportTZ *time.Location) *CheckInHandler {
	if engine == nil {
		panic("nil engine passed to NewCheckInHandler")
	}
	if exportTZ == nil {
		exportTZ = time.UTC
	}
	return &CheckInHandler{Engine: engine, Hub: hub, ExportTZ: exportTZ}
}

type checkInReq struct {
	TicketNumber string `json:"ticket_number"`
	Channel      string `json:"channel"`
}

// CheckIn registers a ticket.  It answers 201 with the refreshed roster, 409
// once the event is at capacity and 400 for blank or malformed tickets.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	channel, err := checkin.ParseChannel(req.Channel)
	if err != nil {
		return fail(c, err, "check-in failed")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	res, err := h.Engine.CheckIn(ctx, ownerID(c), c.Param("id"), req.TicketNumber, channel)
	if err != nil {
		return fail(c, err, "check-in failed")
	}
	return c.JSON(http.StatusCreated, res)
}

// Roster lists the participants of an event in registration order.
func (h *CheckInHandler) Roster(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	roster, err := h.Engine.Roster(ctx, ownerID(c), c.Param("id"))
	if err != nil {
		return fail(c, err, "load participants failed")
	}
	return c.JSON(http.StatusOK, roster)
}

// ExportCSV downloads the roster as <event name>-participants.csv.
func (h *CheckInHandler) ExportCSV(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	roster, err := h.Engine.Roster(ctx, ownerID(c), c.Param("id"))
	if err != nil {
		return fail(c, err, "export failed")
	}

	var buf bytes.Buffer
	if err := checkin.WriteCSV(&buf, roster.Participants, h.ExportTZ); err != nil {
		return fail(c, err, "export failed")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, checkin.ExportFilename(roster.Event.Name)))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Live upgrades to a websocket streaming the event's count after every
// check-in.  The current count is sent first.
func (h *CheckInHandler) Live(c echo.Context) error {
	if h.Hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "live updates disabled"})
	}
	ctx, cancel := dbContext(c)
	roster, err := h.Engine.Roster(ctx, ownerID(c), c.Param("id"))
	cancel()
	if err != nil {
		return fail(c, err, "load event failed")
	}

	// The upgrader answers failed handshakes itself.
	if err := h.Hub.Serve(c.Response(), c.Request(), roster.Event.ID, roster.Update()); err != nil {
		logging.Ctx(c.Request().Context()).Debug().Err(err).Msg("websocket upgrade failed")
	}
	return nil
}
