package testinfra

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/eventdesk/internal/database"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// OpenSQLite returns a private in-memory database with the application
// schema applied.  The pool is limited to a single connection so the
// database lives as long as the handle and writers are serialized.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.MigrateFS(context.Background(), db, schemaFS, "schema")
	require.NoError(t, err)
	return db
}

// OpenSQLiteShared returns a file-backed database in WAL mode served by up
// to conns connections, so transactions from different goroutines really
// overlap.  Transactions start deferred: a transaction that reads before
// it writes fails with SQLITE_BUSY when another writer got there first,
// while one whose first statement writes waits up to busy_timeout.
func OpenSQLiteShared(t testing.TB, conns int) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventdesk.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", path)
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.MigrateFS(context.Background(), db, schemaFS, "schema")
	require.NoError(t, err)
	return db
}

// Clock is a monotonically advancing fake clock.  Every call to Now
// returns a time one millisecond after the previous one so rows created
// in a loop have distinct, ordered timestamps.
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewClock starts a Clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{cur: start.UTC()}
}

// Now advances the clock and returns the new instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Millisecond)
	return c.cur
}
