package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/repository"
)

// EventHandler serves the organizer's event registry.
type EventHandler struct {
	Events *repository.EventRepo
	Engine *checkin.Engine
}

func NewEventHandler(events *repository.EventRepo, engine *checkin.Engine) *EventHandler {
	if events == nil || engine == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Engine: engine}
}

// List returns the caller's events, newest first.  ?tags= accepts a comma
// separated list and may be repeated; unknown tags are ignored.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	events, err := h.Events.ListByOwner(ctx, ownerID(c))
	if err != nil {
		return fail(c, err, "list events failed")
	}
	selected := model.ParseTags(c.QueryParams()["tags"]...)
	return c.JSON(http.StatusOK, echo.Map{
		"events": model.FilterByTags(events, selected),
		"tags":   selected,
	})
}

// Create stores a new event owned by the caller.
func (h *EventHandler) Create(c echo.Context) error {
	var in model.EventInput
	if err := bindInput(c, &in); err != nil {
		return fail(c, err, "create event failed")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	ev, err := h.Events.Create(ctx, ownerID(c), in)
	if err != nil {
		return fail(c, err, "create event failed")
	}
	h.Engine.OwnerChanged(ctx, ev.UserID)
	return c.JSON(http.StatusCreated, ev)
}

// Get returns the event detail: the event, its participants in
// registration order, the count and whether check-ins are accepted.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	roster, err := h.Engine.Roster(ctx, ownerID(c), c.Param("id"))
	if err != nil {
		return fail(c, err, "load event failed")
	}
	return c.JSON(http.StatusOK, roster)
}

// Update overwrites the editable fields of an owned event.
func (h *EventHandler) Update(c echo.Context) error {
	var in model.EventInput
	if err := bindInput(c, &in); err != nil {
		return fail(c, err, "update event failed")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	ev, err := h.Events.Update(ctx, ownerID(c), c.Param("id"), in)
	if err != nil {
		return fail(c, err, "update event failed")
	}
	h.Engine.OwnerChanged(ctx, ev.UserID)
	return c.JSON(http.StatusOK, ev)
}

// Delete removes an owned event and, by cascade, its participants.
func (h *EventHandler) Delete(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	owner := ownerID(c)
	if err := h.Events.Delete(ctx, owner, c.Param("id")); err != nil {
		return fail(c, err, "delete event failed")
	}
	h.Engine.OwnerChanged(ctx, owner)
	return c.NoContent(http.StatusNoContent)
}

// bindInput binds and normalizes an event body before validation so that
// surrounding whitespace never fails the format checks.
func bindInput(c echo.Context, in *model.EventInput) error {
	if err := c.Bind(in); err != nil {
		return &ValidationError{Message: "invalid body"}
	}
	in.Normalize()
	return c.Validate(in)
}
