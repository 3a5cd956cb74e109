package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/repository"
)

// Health is a liveness check for load balancers.  It returns plain "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// SetupHandler reports whether the database schema has been applied.
type SetupHandler struct {
	DB *sql.DB
}

func NewSetupHandler(db *sql.DB) *SetupHandler { return &SetupHandler{DB: db} }

// Status answers {ready:true} once the events table can be queried and
// {ready:false, message} while the schema is missing.
func (h *SetupHandler) Status(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	err := repository.CheckSchema(ctx, h.DB)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"ready": true})
	case errors.Is(err, repository.ErrSchemaMissing):
		return c.JSON(http.StatusOK, echo.Map{"ready": false, "message": repository.SetupMessage})
	}
	return fail(c, err, "setup check failed")
}
