// Package cmd provides the CLI commands for trackify.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackify-app/trackify/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "trackify",
	Short: "trackify - live location tracking client",
	Long: `trackify is a client for the trackify location service.

Ordinary users report their position every few seconds while signed in.
Administrators browse the user directory and inspect anyone's last known
location on a map.

Quick start:
  1. Create a config file: trackify.yaml
  2. Run: trackify start
  3. Open http://127.0.0.1:5173

Configuration:
  Config is loaded from trackify.yaml in the current directory,
  $HOME/.trackify/, or /etc/trackify/.

  Environment variables can override config values with the TRACKIFY_ prefix.
  Example: TRACKIFY_BACKEND_BASE_URL=https://api.trackify.example

Commands:
  start       Start the web surface and the location agent
  track       Report this machine's position headlessly
  users       List users (administrators)
  inspect     Show a user's profile and last known location (administrators)
  stop        Stop the running web surface
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./trackify.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
