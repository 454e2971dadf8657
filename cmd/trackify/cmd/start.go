package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trackify-app/trackify/internal/adapter/inbound/http"
	"github.com/trackify-app/trackify/internal/adapter/outbound/osm"
	"github.com/trackify-app/trackify/internal/config"
	"github.com/trackify-app/trackify/internal/output"
	"github.com/trackify-app/trackify/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the web surface and the location agent",
	Long: `Start the trackify web surface on localhost.

Ordinary users sign in at /login and their position is sampled every few
seconds for as long as they stay signed in. Administrators sign in at
/admin/login to browse the directory and inspect users.

When credentials are configured, start signs in with them immediately.

Examples:
  # Start with config file settings
  trackify start

  # Start against a backend on this machine with debug logging
  trackify start --dev

  # Start with a specific config file
  trackify --config /path/to/trackify.yaml start`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, local backend)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(devMode)
	if err != nil {
		return err
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg, os.Stderr)
	logger.Debug("log level configured", "level", cfg.Server.LogLevel)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Write PID file so "trackify stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger, cmd.ErrOrStderr()); err != nil {
		return err
	}

	logger.Info("trackify stopped")
	return nil
}

// run wires the agent and serves the web surface until ctx ends.
func run(ctx context.Context, cfg *config.TrackifyConfig, logger *slog.Logger, banner io.Writer) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	positioner, err := newPositioner(cfg)
	if err != nil {
		return fmt.Errorf("failed to create positioner: %w", err)
	}

	reg := http.NewRegistry()
	webMetrics := http.NewMetrics(reg)

	// The sampler follows the Holder: it runs while an ordinary user is signed in.
	sampler := service.NewLocationSampler(positioner, a.client, samplerConfig(cfg), service.NewSamplerMetrics(reg), logger)
	detach := sampler.Attach(ctx, a.holder)
	defer func() {
		detach()
		sampler.Close()
	}()

	maps := osm.NewRenderer(cfg.Map.BaseURL, cfg.Map.Zoom)
	ui, err := http.NewUIHandler(http.UIDeps{
		Gate:      service.NewRouteGate(a.sessions, logger),
		Sessions:  a.sessions,
		Directory: service.NewDirectoryService(a.client, a.sessions, logger),
		Inspector: service.NewInspectorService(a.client, a.sessions, maps, logger),
		Sampler:   sampler,
		Maps:      maps,
		Metrics:   webMetrics,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build web surface: %w", err)
	}

	server := http.NewServer(ui,
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithMapOrigin(mapOrigin(cfg.Map.BaseURL)),
		http.WithLogger(logger),
		http.WithRegistry(reg),
		http.WithMetrics(webMetrics),
		http.WithHealthChecker(http.NewHealthChecker(a.holder, sampler, Version)),
		http.WithSessionHolder(a.holder),
	)

	if cfg.HasCredentials() {
		creds, _ := a.credentials()
		if _, err := a.sessions.Login(ctx, creds); err != nil {
			logger.Warn("headless login failed, sign in through the web surface",
				"email", creds.EmailID,
				"error", loginMessage(err),
			)
		}
	}

	printBanner(banner, output.ResolveColors(cfg.Output.Colors), bannerInfo{
		version:  Version,
		addr:     cfg.Server.HTTPAddr,
		backend:  cfg.Backend.BaseURL,
		source:   cfg.Positioner.Source,
		interval: cfg.SampleInterval().String(),
		devMode:  cfg.DevMode,
	})

	return server.Start(ctx)
}

type bannerInfo struct {
	version  string
	addr     string
	backend  string
	source   string
	interval string
	devMode  bool
}

// printBanner prints the startup banner with the addresses and mode.
func printBanner(w io.Writer, useColors bool, info bannerInfo) {
	title := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.Faint)
	mode := color.New(color.FgGreen)
	modeText := "production"
	if info.devMode {
		mode = color.New(color.FgYellow)
		modeText = "development"
	}
	for _, c := range []*color.Color{title, dim, mode} {
		if useColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	rule := "─────────────────────────────────────"
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  %s\n", title.Sprintf("trackify %s", info.version))
	fmt.Fprintf(w, "  %s\n", dim.Sprint(rule))
	fmt.Fprintf(w, "  %-14s http://%s/\n", "Web:", info.addr)
	fmt.Fprintf(w, "  %-14s http://%s/admin/login\n", "Admin:", info.addr)
	fmt.Fprintf(w, "  %-14s %s\n", "Backend:", info.backend)
	fmt.Fprintf(w, "  %-14s %s every %s\n", "Positioner:", info.source, info.interval)
	fmt.Fprintf(w, "  %-14s %s\n", "Mode:", mode.Sprint(modeText))
	fmt.Fprintf(w, "  %s\n", dim.Sprint(rule))
	fmt.Fprintf(w, "\n")
}

// pidFilePath returns the standard location for the trackify PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".trackify", "trackify.pid")
	}
	return filepath.Join(os.TempDir(), "trackify.pid")
}

// writePIDFile writes the current process PID to the given path, creating
// parent directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
