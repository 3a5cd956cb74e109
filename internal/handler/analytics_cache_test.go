package handler_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventdesk/internal/config"
)

// anyCacheEntry matches a command on a hashed response key regardless of
// the stored payload, which embeds a per-request id.
func anyCacheEntry(_, actual []interface{}) error {
	if len(actual) < 2 || !strings.HasPrefix(fmt.Sprint(actual[1]), "cache:") || strings.HasPrefix(fmt.Sprint(actual[1]), "cache:gen:") {
		return fmt.Errorf("unexpected cache command %v", actual)
	}
	return nil
}

func TestAnalytics_CheckInInvalidatesCachedReport(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	t.Cleanup(func() { _ = rdb.Close() })

	cache := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
	s := newCachedServer(t, cache, rdb)

	a := s.signup(t, "org@example.com")
	tok := a.Access.Token
	gen := "cache:gen:" + a.User.ID

	mock.ExpectIncr(gen).SetVal(1)
	ev := s.createEvent(t, tok, "Meetup", 5, "Tech")

	type report struct {
		TotalEvents       int `json:"total_events"`
		TotalParticipants int `json:"total_participants"`
	}

	mock.ExpectGet(gen).SetVal("1")
	mock.CustomMatch(anyCacheEntry).ExpectGet("key").RedisNil()
	mock.CustomMatch(anyCacheEntry).ExpectSetEx("key", "payload", time.Minute).SetVal("OK")
	rec := s.do(t, http.MethodGet, "/v1/analytics", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	before := decode[report](t, rec)
	assert.Equal(t, 1, before.TotalEvents)
	assert.Zero(t, before.TotalParticipants)

	mock.ExpectIncr(gen).SetVal(2)
	rec = s.do(t, http.MethodPost, "/v1/events/"+ev.ID+"/participants", tok, map[string]string{"ticket_number": "T-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The bumped generation moves the report to a key nothing has cached.
	mock.ExpectGet(gen).SetVal("2")
	mock.CustomMatch(anyCacheEntry).ExpectGet("key").RedisNil()
	mock.CustomMatch(anyCacheEntry).ExpectSetEx("key", "payload", time.Minute).SetVal("OK")
	rec = s.do(t, http.MethodGet, "/v1/analytics", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	after := decode[report](t, rec)
	assert.Equal(t, 1, after.TotalParticipants)

	assert.NoError(t, mock.ExpectationsWereMet())
}
