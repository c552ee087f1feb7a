// Package cli holds the campuslib command line: the HTTP server plus the
// administrative commands that run against the same database.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/entrypoint"
)

// ConfigLoader reads the application configuration. Tests swap it out.
type ConfigLoader func() *config.Config

// NewRootCommand builds the command tree. Without a subcommand the server starts.
func NewRootCommand(version string, load ConfigLoader) *cobra.Command {
	if load == nil {
		load = config.NewConfig
	}

	serve := func(cmd *cobra.Command, args []string) {
		entrypoint.Run(load(), version)
	}

	root := &cobra.Command{
		Use:           "campuslib",
		Short:         "University library: lending, study rooms and digital resources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run:           serve,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default when no command is given)",
			Args:  cobra.NoArgs,
			Run:   serve,
		},
		newCreateStaffCommand(load),
		newRefreshFinesCommand(load),
		newExpireBookingsCommand(load),
		newSeedRoomsCommand(load),
	)
	return root
}

// withServices opens the application core for the duration of fn.
func withServices(load ConfigLoader, fn func(*entrypoint.Services) error) error {
	svc, err := entrypoint.NewServices(load())
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}
