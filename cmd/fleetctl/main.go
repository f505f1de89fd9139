package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/duedate"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pep"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fleetctl",
		Short:        "Fleet maintenance operator tool",
		SilenceUsage: true,
	}
	root.AddCommand(newTokenCmd(), newNextDateCmd(), newCatalogCmd(), newRemindersCmd())
	return root
}

func newTokenCmd() *cobra.Command {
	var userID, username, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
			svc, err := auth.NewService(cfg.Auth)
			if err != nil {
				return err
			}
			if userID == "" {
				userID = username
			}
			token, err := svc.GenerateToken(userID, username, models.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id (defaults to the username)")
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&role, "role", string(models.RoleViewer), "admin, manager, technician, operator or viewer")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newNextDateCmd() *cobra.Command {
	var (
		weight   float64
		distance float64
		from     string
	)

	cmd := &cobra.Command{
		Use:   "next-date",
		Short: "Compute the next PEP inspection date of a vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if from != "" {
				t, err := time.Parse(time.DateOnly, from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				start = t
			}
			var dist *float64
			if cmd.Flags().Changed("distance") {
				dist = &distance
			}

			next, err := pep.ComputeNextMaintenanceDate(weight, dist, start)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (every %d months)\n",
				next.Format(time.DateOnly), pep.IntervalMonths(weight, dist))
			return nil
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "gross vehicle weight rating in kg")
	cmd.Flags().Float64Var(&distance, "distance", 0, "annual distance in km (omit when unknown)")
	cmd.Flags().StringVar(&from, "from", "", "inspection date, YYYY-MM-DD (defaults to today)")
	cmd.MarkFlagRequired("weight")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the reference catalogue",
	}

	check := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate a TOML catalogue, or the built-in one without a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			c, err := pep.LoadCatalogFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range c.Sections {
				fmt.Fprintf(out, "%-12s %-28s %d components\n", s.ID, s.Title, len(s.Components))
			}
			fmt.Fprintf(out, "OK: %d sections, %d components\n", len(c.Sections), c.Components())
			return nil
		},
	}

	cmd.AddCommand(check)
	return cmd
}

func newRemindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Query reminders in the configured store",
	}

	var days int
	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "List open reminders due within a window, overdue first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
			store, err := db.NewStoreFromConfig(cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			now := time.Now()
			items, err := reminders.NewEngine(store).GetUpcoming(cmd.Context(), days, now)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range reminders.NewViews(items, now) {
				fmt.Fprintf(out, "%s  %4dd  %-8s  %-12s  %s\n",
					v.DueDate.Format(time.DateOnly), v.DaysUntilDue, v.EffectivePriority, v.VehicleID, v.Title)
			}
			fmt.Fprintf(out, "%d reminder(s) as of %s\n", len(items), duedate.DateOnly(now).Format(time.DateOnly))
			return nil
		},
	}
	upcoming.Flags().IntVar(&days, "days", 7, "window in days")

	cmd.AddCommand(upcoming)
	return cmd
}
