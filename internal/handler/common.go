package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/logging"
	"github.com/iliyamo/eventdesk/internal/middleware"
	"github.com/iliyamo/eventdesk/internal/repository"
)

// dbTimeout bounds every store call made on behalf of a request.  The
// context is derived from the request, so a client that disconnects also
// cancels its query.
const dbTimeout = 5 * time.Second

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// fail maps domain errors onto HTTP responses.  Unknown errors are logged
// with the request context and answered with a generic 500 carrying msg.
func fail(c echo.Context, err error, msg string) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
	case errors.Is(err, checkin.ErrEmptyTicket),
		errors.Is(err, checkin.ErrBadScanCode),
		errors.Is(err, checkin.ErrBadChannel):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrEventFull):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is at capacity"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrSchemaMissing):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": repository.SetupMessage})
	}
	logging.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg(msg)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// bindValid binds the request body into dst and runs the echo validator.
func bindValid(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return &ValidationError{Message: "invalid body"}
	}
	return c.Validate(dst)
}

// ownerID returns the organizer authenticated by JWTAuth.
func ownerID(c echo.Context) string {
	return middleware.UserID(c)
}
