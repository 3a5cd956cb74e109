// Command checkin is the door kiosk: it signs an organizer in, checks
// participants in by hand or from a barcode scanner, and exports rosters.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/eventdesk/internal/checkin"
	"github.com/iliyamo/eventdesk/internal/client"
	"github.com/iliyamo/eventdesk/internal/logging"
	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/session"
)

// kiosk carries the per-run session and API client.  It is built in the
// root command's PersistentPreRunE and torn down after the command runs.
type kiosk struct {
	apiURL      string
	sessionPath string
	logLevel    string

	sess *session.Provider
	api  *client.Client
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	k := &kiosk{}
	root := &cobra.Command{
		Use:           "checkin",
		Short:         "Event check-in kiosk",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return k.open()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if k.sess != nil {
				k.sess.Close()
			}
		},
	}

	apiDefault := os.Getenv("EVENTDESK_API")
	if apiDefault == "" {
		apiDefault = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&k.apiURL, "api", apiDefault, "API base URL (EVENTDESK_API)")
	root.PersistentFlags().StringVar(&k.sessionPath, "session", "", "session file (default <config dir>/eventdesk/session.json)")
	root.PersistentFlags().StringVar(&k.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		k.signinCmd(),
		k.signoutCmd(),
		k.eventsCmd(),
		k.checkinCmd(),
		k.scanCmd(),
		k.exportCmd(),
		k.analyticsCmd(),
	)
	return root
}

func (k *kiosk) open() error {
	logging.Init(logging.Config{Level: k.logLevel, Format: "console", Output: os.Stderr})

	path := k.sessionPath
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	sess, err := session.NewProvider(session.FileStore{Path: path})
	if err != nil {
		return err
	}
	k.sess = sess
	k.api = client.New(k.apiURL, sess)
	return nil
}

func (k *kiosk) signinCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in as an organizer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			s, err := k.api.Signin(cmd.Context(), email, password)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) {
					return errors.New(apiErr.Message)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", s.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "organizer email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (k *kiosk) signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Revoke the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := k.api.Signout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (k *kiosk) eventsCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List your events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := k.api.Events(cmd.Context(), model.ParseTags(tags...)...)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDATE\tTIME\tTAG\tCAPACITY")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", e.ID, e.Name, e.Date, e.Time, e.Tag, e.Capacity)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (repeatable)")
	cmd.AddCommand(k.createEventCmd())
	return cmd
}

func (k *kiosk) createEventCmd() *cobra.Command {
	var in model.EventInput
	var capacity, tag string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Capacity = model.Capacity(model.ParseCapacity(capacity))
			in.Tag = model.Tag(tag)
			ev, err := k.api.CreateEvent(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", ev.Name, ev.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "event name")
	cmd.Flags().StringVar(&in.Date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Time, "time", "", "start time, HH:MM")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&capacity, "capacity", "1", "maximum participants")
	cmd.Flags().StringVar(&tag, "tag", string(model.TagTech), "one of Tech, Non-Tech, Club Activities, External Talk")
	for _, f := range []string{"name", "date", "time", "description"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (k *kiosk) checkinCmd() *cobra.Command {
	var eventID, ticket string
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Check participants in by ticket number",
		Long:  "With --ticket a single ticket is checked in; otherwise one ticket is read per input line.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if ticket != "" {
				return submit(cmd.Context(), out, k.api, eventID, ticket, checkin.Manual)
			}
			if err := k.printGate(cmd, eventID); err != nil {
				return err
			}
			return runManual(cmd.Context(), cmd.InOrStdin(), out, k.api, eventID)
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&ticket, "ticket", "", "ticket number")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func (k *kiosk) scanCmd() *cobra.Command {
	var eventID string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read scanner input and submit every 16-character code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := k.printGate(cmd, eventID); err != nil {
				return err
			}
			changes, cancel := k.sess.Subscribe(4)
			defer cancel()

			err := runScan(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), changes, k.api, eventID)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

// printGate shows the current count and warns when the event is full.
func (k *kiosk) printGate(cmd *cobra.Command, eventID string) error {
	r, err := k.api.Roster(cmd.Context(), eventID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	g := r.Gate()
	fmt.Fprintf(out, "%s: %d/%d checked in, %d left\n", r.Event.Name, g.Count, g.Capacity, g.Remaining())
	if !g.Open() {
		fmt.Fprintln(out, "event is full; check-ins will be refused")
	}
	return nil
}

func (k *kiosk) exportCmd() *cobra.Command {
	var eventID, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the participant list as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmp, err := os.CreateTemp(".", ".export-*.csv")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())

			name, err := k.api.ExportCSV(cmd.Context(), eventID, tmp)
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if output == "" {
				output = name
			}
			if output == "-" {
				b, err := os.ReadFile(tmp.Name())
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.Rename(tmp.Name(), output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout; default <event name>-participants.csv)`)
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func (k *kiosk) analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show participants per event and tag distributions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := k.api.Analytics(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Events\t%d\nParticipants\t%d\n\n", r.TotalEvents, r.TotalParticipants)
			fmt.Fprintln(w, "EVENT\tPARTICIPANTS")
			for _, e := range r.ParticipantsByEvent {
				fmt.Fprintf(w, "%s\t%d\n", e.Name, e.Participants)
			}
			fmt.Fprintln(w, "\nTAG\tEVENTS\t%\tPARTICIPANTS\t%")
			for i, t := range r.EventsByTag {
				p := r.ParticipantsByTag[i]
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%d\t%.1f\n", t.Tag, t.Count, t.Percent, p.Count, p.Percent)
			}
			return w.Flush()
		},
	}
}
