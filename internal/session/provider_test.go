package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(uid string) Session {
	return Session{
		UserID:         uid,
		Email:          uid + "@example.com",
		AccessToken:    "access-" + uid,
		RefreshToken:   "refresh-" + uid,
		RefreshExpires: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func TestProvider_PublishesChanges(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	defer p.Close()

	_, ok := p.Current()
	assert.False(t, ok)

	a, _ := p.Subscribe(4)
	b, _ := p.Subscribe(4)

	require.NoError(t, p.Set(sample("u1")))
	s := sample("u1")
	s.AccessToken = "access-2"
	require.NoError(t, p.Set(s))
	require.NoError(t, p.Clear())

	for _, ch := range []<-chan Change{a, b} {
		assert.Equal(t, SignedIn, (<-ch).Kind)
		c := <-ch
		assert.Equal(t, Refreshed, c.Kind)
		assert.Equal(t, "access-2", c.Session.AccessToken)
		assert.Equal(t, SignedOut, (<-ch).Kind)
	}

	_, ok = p.Current()
	assert.False(t, ok)
}

func TestProvider_DifferentUserIsSignIn(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	ch, cancel := p.Subscribe(2)
	defer cancel()

	require.NoError(t, p.Set(sample("u1")))
	require.NoError(t, p.Set(sample("u2")))
	assert.Equal(t, SignedIn, (<-ch).Kind)
	assert.Equal(t, SignedIn, (<-ch).Kind)

	cur, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "u2", cur.UserID)
}

func TestProvider_ClearWhenEmptyPublishesNothing(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	ch, cancel := p.Subscribe(1)
	defer cancel()

	require.NoError(t, p.Clear())
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %v", c.Kind)
	default:
	}
}

func TestProvider_CloseEndsSubscriptions(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	ch, cancel := p.Subscribe(1)

	p.Close()
	_, open := <-ch
	assert.False(t, open)
	cancel() // safe after Close

	assert.ErrorIs(t, p.Set(sample("u1")), ErrClosed)
	assert.ErrorIs(t, p.Clear(), ErrClosed)

	late, _ := p.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}

func TestProvider_UnsubscribeStopsDelivery(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	ch, cancel := p.Subscribe(1)
	cancel()
	cancel()

	require.NoError(t, p.Set(sample("u1")))
	_, open := <-ch
	assert.False(t, open)
}

func TestProvider_SlowSubscriberDoesNotBlock(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	ch, cancel := p.Subscribe(1)
	defer cancel()

	require.NoError(t, p.Set(sample("u1")))
	require.NoError(t, p.Set(sample("u1")))
	require.NoError(t, p.Clear())

	assert.Equal(t, SignedIn, (<-ch).Kind)
	assert.Empty(t, ch)
}

func TestFileStore_PersistsAcrossProviders(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "nested", "session.json")}

	first, err := NewProvider(store)
	require.NoError(t, err)
	want := sample("u1")
	require.NoError(t, first.Set(want))
	first.Close()

	second, err := NewProvider(store)
	require.NoError(t, err)
	got, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.RefreshExpires.Equal(got.RefreshExpires))

	require.NoError(t, second.Clear())
	third, err := NewProvider(store)
	require.NoError(t, err)
	_, ok = third.Current()
	assert.False(t, ok)
}

func TestFileStore_ExpiredSessionIgnored(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "session.json")}
	s := sample("u1")
	s.RefreshExpires = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(s))

	p, err := NewProvider(store)
	require.NoError(t, err)
	_, ok := p.Current()
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "signed_in", SignedIn.String())
	assert.Equal(t, "refreshed", Refreshed.String())
	assert.Equal(t, "signed_out", SignedOut.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
