package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/output"
	"github.com/trackify-app/trackify/internal/service"
)

var usersPage int

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users (administrators)",
	Long: `Sign in with the configured administrator credentials and print one
page of the user directory.

Examples:
  trackify users
  trackify users --page 3`,
	Args: cobra.NoArgs,
	RunE: runUsers,
}

func init() {
	usersCmd.Flags().IntVar(&usersPage, "page", 1, "Page to show (1-indexed)")
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer a.close()

	return listUsers(cmd.Context(), a, usersPage, newPrinter(cmd, cfg))
}

// listUsers prints page n of the directory. A page past the end is
// replaced by the last page.
func listUsers(ctx context.Context, a *app, n int, p *output.Printer) error {
	if err := a.adminLogin(ctx); err != nil {
		return err
	}
	defer a.logout()

	dir := service.NewDirectoryService(a.client, a.sessions, a.logger)
	listing, err := dir.FetchPage(ctx, n)
	if err != nil {
		p.Error(directory.ErrorMessage)
		return err
	}

	if clamped := directory.ClampPage(n, listing.TotalPages); listing.TotalPages > 0 && clamped != n {
		p.Warning("Page %d does not exist, showing page %d.", n, clamped)
		if listing, err = dir.FetchPage(ctx, clamped); err != nil {
			p.Error(directory.ErrorMessage)
			return err
		}
	}

	p.Header("Users")
	return p.Directory(listing)
}
