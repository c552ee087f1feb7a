package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/campuslib/internal/database"
	"github.com/mrlokans/campuslib/internal/entrypoint"
)

func newRefreshFinesCommand(load ConfigLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-fines",
		Short: "Store the current fine of every overdue loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(load, func(svc *entrypoint.Services) error {
				updated, err := svc.Lending.RefreshFines(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated fines on %d loans\n", updated)
				return nil
			})
		},
	}
}

func newExpireBookingsCommand(load ConfigLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "expire-bookings",
		Short: "Reject pending room bookings whose date has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(load, func(svc *entrypoint.Services) error {
				expired, err := svc.Bookings.ExpireStale(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expired %d bookings\n", expired)
				return nil
			})
		},
	}
}

func newSeedRoomsCommand(load ConfigLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-rooms",
		Short: "Create the starter set of study rooms",
		Long:  "Create the starter set of study rooms. Rooms whose code already exists are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(load, func(svc *entrypoint.Services) error {
				created, err := svc.DB.SeedRooms(database.DefaultRooms)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d of %d rooms\n", created, len(database.DefaultRooms))
				return nil
			})
		},
	}
}
