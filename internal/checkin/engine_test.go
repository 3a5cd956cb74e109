package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/queue"
	"github.com/iliyamo/eventdesk/internal/repository"
	"github.com/iliyamo/eventdesk/internal/testinfra"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.CheckInRecordedEvent
	err    error
}

func (f *fakePublisher) PublishCheckIn(_ context.Context, ev queue.CheckInRecordedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeBroadcaster struct {
	updates []LiveUpdate
}

func (f *fakeBroadcaster) Broadcast(_ string, payload any) {
	f.updates = append(f.updates, payload.(LiveUpdate))
}

type fakeRecorder struct {
	outcomes       []string
	publishFailure int
}

func (f *fakeRecorder) ObserveCheckIn(channel, outcome string) {
	f.outcomes = append(f.outcomes, channel+":"+outcome)
}
func (f *fakeRecorder) PublishFailed() { f.publishFailure++ }

type fakeInvalidator struct {
	owners []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, ownerID string) {
	f.owners = append(f.owners, ownerID)
}

type engineFixture struct {
	engine *Engine
	owner  model.User
	events *repository.EventRepo
	pub    *fakePublisher
	live   *fakeBroadcaster
	rec    *fakeRecorder
	cache  *fakeInvalidator
}

func newEngineFixture(t *testing.T) engineFixture {
	t.Helper()
	db := testinfra.OpenSQLite(t)
	clock := testinfra.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	users := repository.NewUserRepo(db).WithClock(clock.Now)
	owner, err := users.Create(context.Background(), "owner@example.com", "pw", "Owner", "R1", bcrypt.MinCost)
	require.NoError(t, err)

	f := engineFixture{
		owner:  owner,
		events: repository.NewEventRepo(db).WithClock(clock.Now),
		pub:    &fakePublisher{},
		live:   &fakeBroadcaster{},
		rec:    &fakeRecorder{},
		cache:  &fakeInvalidator{},
	}
	f.engine = NewEngine(f.events, repository.NewParticipantRepo(db).WithClock(clock.Now),
		WithPublisher(f.pub), WithBroadcaster(f.live), WithRecorder(f.rec), WithInvalidator(f.cache))
	return f
}

func (f engineFixture) event(t *testing.T, capacity int) model.Event {
	t.Helper()
	e, err := f.events.Create(context.Background(), f.owner.ID, model.EventInput{
		Name: "Hack Night", Date: "2025-04-01", Time: "19:00", Description: "d",
		Capacity: model.Capacity(capacity), Tag: model.TagTech,
	})
	require.NoError(t, err)
	return e
}

func TestEngineCheckInCapacityTwo(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	ev := f.event(t, 2)

	res, err := f.engine.CheckIn(ctx, f.owner.ID, ev.ID, " A-1 ", Manual)
	require.NoError(t, err)
	assert.Equal(t, "A-1", res.Participant.TicketNumber)
	assert.Equal(t, 1, res.Count)
	assert.True(t, res.Accepting)

	res, err = f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "A-2", Manual)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.Accepting)
	assert.False(t, res.Gate().Open())
	require.Len(t, res.Participants, 2)
	assert.Equal(t, "A-1", res.Participants[0].TicketNumber)
	assert.Equal(t, "A-2", res.Participants[1].TicketNumber)

	_, err = f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "A-3", Manual)
	assert.ErrorIs(t, err, repository.ErrEventFull)

	roster, err := f.engine.Roster(ctx, f.owner.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, roster.Count)
	assert.False(t, roster.Accepting)

	assert.Equal(t, []string{"manual:accepted", "manual:accepted", "manual:full"}, f.rec.outcomes)
	require.Len(t, f.pub.events, 2)
	assert.Equal(t, "Hack Night", f.pub.events[1].EventName)
	assert.Equal(t, 2, f.pub.events[1].Count)
	require.Len(t, f.live.updates, 2)
	assert.Equal(t, LiveUpdate{EventID: ev.ID, Count: 2, Capacity: 2, Accepting: false}, f.live.updates[1])
	assert.Equal(t, []string{f.owner.ID, f.owner.ID}, f.cache.owners, "only accepted check-ins invalidate")
}

func TestEngineScanKeepsCodeVerbatim(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	ev := f.event(t, 5)

	var buf ScanBuffer
	codes := feed(&buf, " ABCDEFGHIJKLMNO")
	require.Len(t, codes, 1)

	res, err := f.engine.CheckIn(ctx, f.owner.ID, ev.ID, codes[0], Scan)
	require.NoError(t, err)
	assert.Equal(t, " ABCDEFGHIJKLMNO", res.Participant.TicketNumber)

	res, err = f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "ABCDEFGHIJKLMNO ", Scan)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKLMNO ", res.Participant.TicketNumber)

	_, err = f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "                ", Scan)
	assert.ErrorIs(t, err, ErrEmptyTicket)
}

func TestEngineScanChannelIsGatedToo(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	ev := f.event(t, 1)

	_, err := f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "AAAAAAAAAAAAAAAA", Scan)
	require.NoError(t, err)
	_, err = f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "BBBBBBBBBBBBBBBB", Scan)
	assert.ErrorIs(t, err, repository.ErrEventFull)
}

func TestEngineRejectsBadInput(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	ev := f.event(t, 5)

	_, err := f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "   ", Manual)
	assert.ErrorIs(t, err, ErrEmptyTicket)

	_, err = f.engine.CheckIn(ctx, f.owner.ID, ev.ID, "SHORT", Scan)
	assert.ErrorIs(t, err, ErrBadScanCode)

	_, err = f.engine.CheckIn(ctx, f.owner.ID, "nope", "T", Manual)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	_, err = f.engine.Roster(ctx, "someone-else", ev.ID)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	assert.Empty(t, f.pub.events)
	assert.Empty(t, f.live.updates)
	assert.Empty(t, f.cache.owners)
}

func TestEnginePublishFailureDoesNotFailCheckIn(t *testing.T) {
	f := newEngineFixture(t)
	f.pub.err = errors.New("broker down")
	ev := f.event(t, 5)

	res, err := f.engine.CheckIn(context.Background(), f.owner.ID, ev.ID, "T-1", Manual)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, f.rec.publishFailure)
}

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel("")
	require.NoError(t, err)
	assert.Equal(t, Manual, c)

	c, err = ParseChannel(" SCAN ")
	require.NoError(t, err)
	assert.Equal(t, Scan, c)

	_, err = ParseChannel("telepathy")
	assert.ErrorIs(t, err, ErrBadChannel)
}
