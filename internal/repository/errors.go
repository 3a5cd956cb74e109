// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrEventNotFound covers both a missing event and an event
// owned by someone else, while ErrEventFull signals that the capacity
// gate refused a check-in.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEventNotFound is returned when an event does not exist or is not
// owned by the caller. Handlers should translate this into an HTTP 404
// response.
var ErrEventNotFound = errors.New("event not found")

// ErrEventFull is returned when a check-in would push the participant
// count past the event capacity. Handlers should translate this into
// an HTTP 409 response.
var ErrEventFull = errors.New("event is full")

// ErrEmailExists is returned when signing up with an email that is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrSchemaMissing is returned by the setup check when the expected
// tables have not been created yet.
var ErrSchemaMissing = errors.New("database tables don't exist yet")

// MySQL server error numbers inspected by the repositories.
const (
	mysqlDuplicateEntry = 1062
	mysqlNoSuchTable    = 1146
)

// isDuplicate reports whether err is a unique-key violation.  The SQLite
// message is matched as well so repositories behave the same on the
// in-memory test store.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isMissingTable reports whether err signals an absent table.
func isMissingTable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlNoSuchTable
	}
	return err != nil && strings.Contains(err.Error(), "no such table")
}
