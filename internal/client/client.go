// Package client talks to the eventdesk HTTP API on behalf of the kiosk.
//
// Credentials come from a session.Provider.  A request answered with 401 is
// retried once after rotating the refresh token; the rotated pair is written
// back to the provider, which notifies its subscribers.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/iliyamo/eventdesk/internal/analytics"
	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/repository"
	"github.com/iliyamo/eventdesk/internal/session"
)

var (
	// ErrNotSignedIn is returned by authenticated calls without a session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrUnauthorized is wrapped by APIError for 401 answers.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx answer.  Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap maps status codes onto the sentinels callers test with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return repository.ErrEventNotFound
	case http.StatusConflict:
		if strings.Contains(e.Message, "capacity") {
			return repository.ErrEventFull
		}
		return repository.ErrEmailExists
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// Client is an API client.  It is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	sess *session.Provider
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New returns a client for the API at baseURL.
func New(baseURL string, sess *session.Provider, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		sess: sess,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type authResp struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	Access struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"access"`
	Refresh struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"refresh"`
}

func (a authResp) session() session.Session {
	return session.Session{
		UserID:         a.User.ID,
		Email:          a.User.Email,
		Name:           a.User.Name,
		AccessToken:    a.Access.Token,
		AccessExpires:  a.Access.Expires,
		RefreshToken:   a.Refresh.Token,
		RefreshExpires: a.Refresh.Expires,
	}
}

// Signin exchanges credentials for a session and stores it in the provider.
func (c *Client) Signin(ctx context.Context, email, password string) (session.Session, error) {
	var out authResp
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/v1/auth/signin", "", body, &out); err != nil {
		return session.Session{}, err
	}
	s := out.session()
	if err := c.sess.Set(s); err != nil {
		return session.Session{}, err
	}
	return s, nil
}

// Signout revokes the current refresh token and clears the provider.  The
// local session is cleared even when the server call fails.
func (c *Client) Signout(ctx context.Context) error {
	s, ok := c.sess.Current()
	if !ok {
		return nil
	}
	err := c.send(ctx, http.MethodPost, "/v1/auth/signout", "", map[string]string{"refresh_token": s.RefreshToken}, nil)
	if cerr := c.sess.Clear(); cerr != nil {
		return cerr
	}
	return err
}

// Events lists the organizer's events, newest first, optionally narrowed
// to tags.
func (c *Client) Events(ctx context.Context, tags ...model.Tag) ([]model.Event, error) {
	path := "/v1/events"
	if len(tags) > 0 {
		parts := make([]string, len(tags))
		for i, t := range tags {
			parts[i] = string(t)
		}
		path += "?tags=" + url.QueryEscape(strings.Join(parts, ","))
	}
	var out struct {
		Events []model.Event `json:"events"`
	}
	if err := c.authed(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// CreateEvent creates an event owned by the signed-in organizer.
func (c *Client) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	var out model.Event
	err := c.authed(ctx, http.MethodPost, "/v1/events", in, &out)
	return out, err
}

// Roster returns an event with its participants.
func (c *Client) Roster(ctx context.Context, eventID string) (checkin.Roster, error) {
	var out checkin.Roster
	err := c.authed(ctx, http.MethodGet, "/v1/events/"+url.PathEscape(eventID)+"/participants", nil, &out)
	return out, err
}

// CheckIn registers ticket through channel.
func (c *Client) CheckIn(ctx context.Context, eventID, ticket string, channel checkin.Channel) (checkin.Result, error) {
	var out checkin.Result
	body := map[string]string{"ticket_number": ticket, "channel": string(channel)}
	err := c.authed(ctx, http.MethodPost, "/v1/events/"+url.PathEscape(eventID)+"/participants", body, &out)
	return out, err
}

// Analytics returns the organizer's report.
func (c *Client) Analytics(ctx context.Context) (analytics.Report, error) {
	var out analytics.Report
	err := c.authed(ctx, http.MethodGet, "/v1/analytics", nil, &out)
	return out, err
}

// ExportCSV streams the participant CSV of an event into w and returns the
// filename suggested by the server.
func (c *Client) ExportCSV(ctx context.Context, eventID string, w io.Writer) (string, error) {
	resp, err := c.authedRaw(ctx, http.MethodGet, "/v1/events/"+url.PathEscape(eventID)+"/participants.csv", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	name := "participants.csv"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, nil
}

// authed decodes a JSON answer of an authenticated call.
func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.authedRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// authedRaw performs an authenticated call, refreshing once on 401.  The
// caller closes the body of a successful response.
func (c *Client) authedRaw(ctx context.Context, method, path string, body any) (*http.Response, error) {
	s, ok := c.sess.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	resp, err := c.raw(ctx, method, path, s.AccessToken, body)
	if !errors.Is(err, ErrUnauthorized) || s.RefreshToken == "" {
		return resp, err
	}
	if rerr := c.refresh(ctx, s); rerr != nil {
		return nil, err
	}
	s, _ = c.sess.Current()
	return c.raw(ctx, method, path, s.AccessToken, body)
}

func (c *Client) refresh(ctx context.Context, s session.Session) error {
	var out authResp
	if err := c.send(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": s.RefreshToken}, &out); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			_ = c.sess.Clear()
		}
		return err
	}
	return c.sess.Set(out.session())
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	resp, err := c.raw(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// raw performs one request and turns non-2xx answers into *APIError.
func (c *Client) raw(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	var msg struct {
		Error string `json:"error"`
	}
	if b, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); rerr == nil {
		if json.Unmarshal(b, &msg) == nil && msg.Error != "" {
			apiErr.Message = msg.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(b))
		}
	}
	return nil, apiErr
}
