package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/client"
	"github.com/iliyamo/eventdesk/internal/repository"
	"github.com/iliyamo/eventdesk/internal/session"
)

// checker is the part of the API client the check-in loops need.
type checker interface {
	CheckIn(ctx context.Context, eventID, ticket string, channel checkin.Channel) (checkin.Result, error)
}

var errSignedOut = errors.New("signed out")

// runScan feeds scanner input from in into a ScanBuffer and submits every
// completed 16-character code.  It returns when in is exhausted, ctx is
// cancelled or the session signs out.  A full event is reported and the
// loop keeps running so the operator sees every refused scan.
func runScan(ctx context.Context, in io.Reader, out io.Writer, changes <-chan session.Change, c checker, eventID string) error {
	runes := make(chan rune)
	readErr := make(chan error, 1)
	go func() {
		defer close(runes)
		r := bufio.NewReader(in)
		for {
			ch, _, err := r.ReadRune()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
			select {
			case runes <- ch:
			case <-ctx.Done():
				return
			}
		}
	}()

	var buf checkin.ScanBuffer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-changes:
			if !ok || ch.Kind == session.SignedOut {
				return errSignedOut
			}
		case r, ok := <-runes:
			if !ok {
				if buf.Len() > 0 {
					fmt.Fprintf(out, "discarding partial scan %q\n", buf.Pending())
				}
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			code, done := buf.Feed(r)
			if !done {
				continue
			}
			if err := submit(ctx, out, c, eventID, code, checkin.Scan); err != nil {
				return err
			}
		}
	}
}

// runManual submits one ticket per non-blank input line.
func runManual(ctx context.Context, in io.Reader, out io.Writer, c checker, eventID string) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ticket := strings.TrimSpace(sc.Text())
		if ticket == "" {
			continue
		}
		if err := submit(ctx, out, c, eventID, ticket, checkin.Manual); err != nil {
			return err
		}
	}
	return sc.Err()
}

// submit checks in one ticket and prints the outcome.  Refusals the
// operator can act on are printed; anything else ends the loop.
func submit(ctx context.Context, out io.Writer, c checker, eventID, ticket string, channel checkin.Channel) error {
	res, err := c.CheckIn(ctx, eventID, ticket, channel)
	switch {
	case err == nil:
		fmt.Fprintf(out, "checked in %s (%d/%d)\n", ticket, res.Count, res.Event.Capacity)
		if !res.Accepting {
			fmt.Fprintln(out, "event is now full")
		}
		return nil
	case errors.Is(err, repository.ErrEventFull):
		fmt.Fprintf(out, "refused %s: event is full\n", ticket)
		return nil
	case errors.Is(err, repository.ErrEventNotFound):
		return fmt.Errorf("event %s not found", eventID)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		fmt.Fprintf(out, "refused %s: %s\n", ticket, apiErr.Message)
		return nil
	}
	return err
}
