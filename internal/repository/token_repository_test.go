package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventdesk/internal/testinfra"
)

func TestTokenRepo_ConsumeRefreshOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "owner@example.com")
	tokens := NewTokenRepo(f.db).WithClock(func() time.Time { return epoch })

	require.NoError(t, tokens.StoreRefresh(ctx, u.ID, "h-1", epoch.Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, u.ID, "h-old", epoch.Add(-time.Hour)))

	got, err := tokens.ConsumeRefresh(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got)

	_, err = tokens.ConsumeRefresh(ctx, "h-1")
	assert.ErrorIs(t, err, sql.ErrNoRows, "a consumed token is spent")
	_, err = tokens.ConsumeRefresh(ctx, "h-old")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expired")
	_, err = tokens.ConsumeRefresh(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTokenRepo_ConcurrentConsumeHasOneWinner(t *testing.T) {
	f := newFixtureOn(t, testinfra.OpenSQLiteShared(t, 8))
	ctx := context.Background()
	u := f.user(t, "owner@example.com")
	tokens := NewTokenRepo(f.db).WithClock(func() time.Time { return epoch })
	require.NoError(t, tokens.StoreRefresh(ctx, u.ID, "h-race", epoch.Add(time.Hour)))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		other   []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := tokens.ConsumeRefresh(ctx, "h-race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case !errors.Is(err, sql.ErrNoRows):
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, winners)
}
