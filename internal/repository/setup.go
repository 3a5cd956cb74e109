package repository

import (
	"context"
	"database/sql"
)

// SetupMessage is shown when the schema has not been applied yet.
const SetupMessage = "Database tables don't exist yet. Run the server with -migrate to create them."

// CheckSchema checks that the events table can be queried.  It returns
// ErrSchemaMissing when the table does not exist and the raw driver
// error for anything else.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT id FROM events LIMIT 1`)
	if err != nil {
		if isMissingTable(err) {
			return ErrSchemaMissing
		}
		return err
	}
	return rows.Close()
}
