package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackify-app/trackify/internal/adapter/outbound/backend"
	"github.com/trackify-app/trackify/internal/adapter/outbound/geo"
	"github.com/trackify-app/trackify/internal/config"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/output"
	"github.com/trackify-app/trackify/internal/port/outbound"
	"github.com/trackify-app/trackify/internal/service"
	"github.com/trackify-app/trackify/internal/telemetry"
)

// logoutTimeout bounds the logout sent while a command exits.
const logoutTimeout = 5 * time.Second

// app holds the components every command needs: the backend client and
// the Session Store writing to a process-wide Holder.
type app struct {
	cfg       *config.TrackifyConfig
	logger    *slog.Logger
	client    *backend.Client
	holder    *session.Holder
	sessions  *service.SessionService
	telemetry *telemetry.Providers
}

// loadConfig reads, defaults and validates the configuration. devMode
// comes from a CLI flag and is applied before validation.
func loadConfig(devMode bool) (*config.TrackifyConfig, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger returns a text logger on w.
// Priority: DevMode=true -> debug, otherwise the configured log_level.
func newLogger(cfg *config.TrackifyConfig, w io.Writer) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newPrinter writes to the command's streams.
func newPrinter(cmd *cobra.Command, cfg *config.TrackifyConfig) *output.Printer {
	return output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(cfg.Output.Colors))
}

func newApp(ctx context.Context, cfg *config.TrackifyConfig, logger *slog.Logger) (*app, error) {
	providers, err := telemetry.InitProvider(ctx, telemetry.Config{
		ServiceName:    "trackify",
		ServiceVersion: Version,
		Enabled:        cfg.Telemetry.Enabled,
		Interval:       cfg.TelemetryInterval(),
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	client, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.BackendTimeout()),
		backend.WithLogger(logger),
		backend.WithTracerProvider(providers.Tracer),
		backend.WithMeterProvider(providers.Meter),
	)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	holder := session.NewHolder()
	return &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		holder:    holder,
		sessions:  service.NewSessionService(client, holder, logger),
		telemetry: providers,
	}, nil
}

// close flushes telemetry.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// credentials returns the configured headless login.
func (a *app) credentials() (outbound.Credentials, error) {
	if !a.cfg.HasCredentials() {
		return outbound.Credentials{}, errors.New("credentials.email and credentials.password are required " +
			"(or TRACKIFY_CREDENTIALS_EMAIL and TRACKIFY_CREDENTIALS_PASSWORD)")
	}
	return outbound.Credentials{
		EmailID:  a.cfg.Credentials.Email,
		Password: a.cfg.Credentials.Password,
	}, nil
}

// adminLogin authenticates the configured credentials as an administrator.
func (a *app) adminLogin(ctx context.Context) error {
	creds, err := a.credentials()
	if err != nil {
		return err
	}
	sess, err := a.sessions.AdminLogin(ctx, creds)
	if err != nil {
		return fmt.Errorf("admin login failed: %s", loginMessage(err))
	}
	if !sess.IsAdmin() {
		a.logout()
		return fmt.Errorf("%s is not an administrator", creds.EmailID)
	}
	return nil
}

// logout revokes the cached session. It runs on its own deadline because
// the command context is usually already canceled.
func (a *app) logout() {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	a.sessions.Logout(ctx, "")
}

// loginMessage is the backend's explanation of a rejected login.
func loginMessage(err error) string {
	if msg := outbound.MessageOf(err); msg != "" {
		return msg
	}
	return err.Error()
}

// newPositioner builds the configured positioning capability.
func newPositioner(cfg *config.TrackifyConfig) (outbound.Positioner, error) {
	p := cfg.Positioner
	switch p.Source {
	case config.SourceStatic, "":
		return geo.NewStatic(p.Latitude, p.Longitude, p.Accuracy, p.Speed), nil
	case config.SourceReplay:
		return geo.LoadReplay(p.ReplayFile)
	case config.SourceDenied:
		return geo.Denied{}, nil
	default:
		return nil, fmt.Errorf("unknown positioner source %q", p.Source)
	}
}

func samplerConfig(cfg *config.TrackifyConfig) service.SamplerConfig {
	return service.SamplerConfig{
		Interval:     cfg.SampleInterval(),
		HighAccuracy: cfg.Sampler.HighAccuracy,
	}
}

// mapOrigin reduces the map site URL to the origin framed by the web surface.
func mapOrigin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
