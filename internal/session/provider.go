// Package session holds the kiosk's signed-in organizer.
//
// A Provider is created when the kiosk starts and closed when it exits.
// It is passed to whatever needs the current credentials; there is no
// package-level session.  Every change is published to subscribers so a
// long-running scan loop can stop when the organizer signs out.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/eventdesk/internal/logging"
)

// ErrClosed is returned by Set and Clear after Close.
var ErrClosed = errors.New("session provider closed")

// Session is the credential set of a signed-in organizer.
type Session struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	AccessToken    string    `json:"access_token"`
	AccessExpires  time.Time `json:"access_expires"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires"`
}

// Kind describes a session change.
type Kind int

const (
	SignedIn Kind = iota + 1
	Refreshed
	SignedOut
)

func (k Kind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case Refreshed:
		return "refreshed"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

// Change is published on every Set and Clear.  Session is the zero value
// for SignedOut.
type Change struct {
	Kind    Kind
	Session Session
}

// Store persists the session between kiosk runs.
type Store interface {
	Load() (*Session, error)
	Save(Session) error
	Clear() error
}

// Provider owns the current session.  It is safe for concurrent use.
type Provider struct {
	mu     sync.RWMutex
	cur    *Session
	store  Store
	subs   map[int]chan Change
	nextID int
	closed bool
}

// NewProvider returns a provider backed by store, which may be nil.  A
// session previously saved in store becomes the current one; expired
// refresh tokens are discarded.
func NewProvider(store Store) (*Provider, error) {
	p := &Provider{store: store, subs: make(map[int]chan Change)}
	if store == nil {
		return p, nil
	}
	s, err := store.Load()
	if err != nil {
		return nil, err
	}
	if s != nil && (s.RefreshExpires.IsZero() || time.Now().Before(s.RefreshExpires)) {
		p.cur = s
	}
	return p, nil
}

// Current returns a copy of the current session.
func (p *Provider) Current() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cur == nil {
		return Session{}, false
	}
	return *p.cur, true
}

// Set replaces the current session.  The change is SignedIn when nobody
// was signed in or a different user signs in, Refreshed otherwise.
func (p *Provider) Set(s Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	kind := SignedIn
	if p.cur != nil && p.cur.UserID == s.UserID {
		kind = Refreshed
	}
	if p.store != nil {
		if err := p.store.Save(s); err != nil {
			return err
		}
	}
	p.cur = &s
	p.publish(Change{Kind: kind, Session: s})
	return nil
}

// Clear signs out.  Clearing an empty provider publishes nothing.
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.store != nil {
		if err := p.store.Clear(); err != nil {
			return err
		}
	}
	if p.cur == nil {
		return nil
	}
	p.cur = nil
	p.publish(Change{Kind: SignedOut})
	return nil
}

// Subscribe returns a channel receiving every later change and a function
// that unsubscribes and closes it.  A subscriber that falls more than
// buffer changes behind misses changes instead of blocking the provider.
func (p *Provider) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

// Close closes every subscriber channel.  The current session is kept in
// the store so the next run starts signed in.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
}

// publish must be called with p.mu held.
func (p *Provider) publish(c Change) {
	for _, ch := range p.subs {
		select {
		case ch <- c:
		default:
			log := logging.WithComponent("session")
			log.Warn().Str("kind", c.Kind.String()).Msg("subscriber behind, change dropped")
		}
	}
}
