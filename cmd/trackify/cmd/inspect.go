package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackify-app/trackify/internal/adapter/outbound/osm"
	"github.com/trackify-app/trackify/internal/output"
	"github.com/trackify-app/trackify/internal/port/outbound"
	"github.com/trackify-app/trackify/internal/service"
)

var inspectMap bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <userId>",
	Short: "Show a user's profile and last known location (administrators)",
	Long: `Sign in with the configured administrator credentials and show one
user's profile and last known location. With --map, also print the map
links centered on that location.

Examples:
  trackify inspect 64f1c0ffee
  trackify inspect 64f1c0ffee --map`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectMap, "map", false, "Print the map overlay links")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer a.close()

	return inspectUser(cmd.Context(), a, args[0], inspectMap, newPrinter(cmd, cfg))
}

// inspectUser fetches the profile and the location concurrently and
// prints them once both have settled.
func inspectUser(ctx context.Context, a *app, userID string, showMap bool, p *output.Printer) error {
	if err := a.adminLogin(ctx); err != nil {
		return err
	}
	defer a.logout()

	maps := osm.NewRenderer(a.cfg.Map.BaseURL, a.cfg.Map.Zoom)
	inspectors := service.NewInspectorService(a.client, a.sessions, maps, a.logger)

	v, err := inspectors.Inspect(ctx, userID).View(ctx)
	if err != nil {
		return err
	}

	var mv *outbound.MapView
	if showMap {
		if v.MapAvailable() {
			m, err := inspectors.Map(v)
			if err != nil {
				return err
			}
			mv = &m
		} else {
			p.Warning("No location to show on the map.")
		}
	}

	p.Inspection(v, mv)
	return nil
}
