package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/analytics"
	"github.com/iliyamo/eventdesk/internal/repository"
)

// AnalyticsHandler summarizes the caller's events and attendance.
type AnalyticsHandler struct {
	Events       *repository.EventRepo
	Participants *repository.ParticipantRepo
}

func NewAnalyticsHandler(events *repository.EventRepo, participants *repository.ParticipantRepo) *AnalyticsHandler {
	return &AnalyticsHandler{Events: events, Participants: participants}
}

// Report recomputes the analytics report for the authenticated organizer.
func (h *AnalyticsHandler) Report(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	uid := ownerID(c)
	events, err := h.Events.ListByOwnerOldestFirst(ctx, uid)
	if err != nil {
		return fail(c, err, "load events failed")
	}
	participants, err := h.Participants.ListByOwner(ctx, uid)
	if err != nil {
		return fail(c, err, "load participants failed")
	}
	return c.JSON(http.StatusOK, analytics.Aggregate(events, participants))
}
