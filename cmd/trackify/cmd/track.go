package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackify-app/trackify/internal/output"
	"github.com/trackify-app/trackify/internal/port/outbound"
	"github.com/trackify-app/trackify/internal/service"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Report this machine's position until interrupted",
	Long: `Sign in as an ordinary user and report the configured position every
sampling interval until Ctrl+C, then sign out.

The position comes from the positioner section of the config: a static
fix, a replayed YAML track, or "denied" to exercise the denial notice.

Examples:
  # Track with the configured credentials
  trackify track

  # Create the account first
  trackify track --signup --first-name Ada --last-name Lovelace`,
	Args: cobra.NoArgs,
	RunE: runTrack,
}

type trackOptions struct {
	signup    bool
	firstName string
	lastName  string
	// poll is how often the sampler snapshot is checked for new uploads.
	poll time.Duration
}

var trackOpts = trackOptions{poll: 250 * time.Millisecond}

func init() {
	trackCmd.Flags().BoolVar(&trackOpts.signup, "signup", false, "Create the account before tracking")
	trackCmd.Flags().StringVar(&trackOpts.firstName, "first-name", "", "First name for --signup")
	trackCmd.Flags().StringVar(&trackOpts.lastName, "last-name", "", "Last name for --signup")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	a, err := newApp(ctx, cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer a.close()

	positioner, err := newPositioner(cfg)
	if err != nil {
		return fmt.Errorf("failed to create positioner: %w", err)
	}

	return track(ctx, a, positioner, trackOpts, newPrinter(cmd, cfg))
}

// track signs in, samples until ctx ends and signs out.
func track(ctx context.Context, a *app, positioner outbound.Positioner, opts trackOptions, p *output.Printer) error {
	creds, err := a.credentials()
	if err != nil {
		return err
	}

	if opts.signup {
		_, err = a.sessions.Signup(ctx, outbound.SignupRequest{
			FirstName: opts.firstName,
			LastName:  opts.lastName,
			EmailID:   creds.EmailID,
			Password:  creds.Password,
		})
	} else {
		_, err = a.sessions.Login(ctx, creds)
	}
	if err != nil {
		return fmt.Errorf("login failed: %s", loginMessage(err))
	}
	defer func() {
		a.logout()
		p.Success("Logged out")
	}()

	sess, _ := a.holder.Current()
	if sess.IsAdmin() {
		return errors.New("administrators are not tracked; use an ordinary account")
	}

	sampler := service.NewLocationSampler(positioner, a.client, samplerConfig(a.cfg), nil, a.logger)
	detach := sampler.Attach(ctx, a.holder)
	defer func() {
		detach()
		sampler.Close()
	}()

	p.Success("Tracking %s every %s. Press Ctrl+C to stop.", sess.FirstName, a.cfg.SampleInterval())

	poll := opts.poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastUpload time.Time
	lastNotice := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		snap := sampler.Snapshot()
		if !snap.Active {
			return errors.New("session ended by the backend")
		}
		if snap.Notice != lastNotice {
			if snap.Notice != "" {
				p.Warning("%s", snap.Notice)
			}
			lastNotice = snap.Notice
		}
		if snap.Current != nil && snap.LastUpload.After(lastUpload) {
			lastUpload = snap.LastUpload
			p.Sample(*snap.Current)
		}
	}
}
