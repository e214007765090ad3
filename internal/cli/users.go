package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/playperu/beastgames/internal/app"
)

func newUsersCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, export and manage registered users",
	}

	cmd.AddCommand(newUsersListCmd(s))
	cmd.AddCommand(newUsersExportCmd(s))
	cmd.AddCommand(newUsersResetGameCmd(s))
	cmd.AddCommand(newUsersResetCmd(s))
	cmd.AddCommand(newUsersDeleteCmd(s))

	return cmd
}

func newUsersListCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users with their access and selection",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			overview, err := a.Console.Overview(ctx)
			if err != nil {
				return err
			}
			s.out.Print(usersView{Overview: overview, now: a.Console.Now()})
			return nil
		}),
	}
}

func newUsersExportCmd(s *state) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all users as CSV",
		Long: `Export all users as CSV. The file defaults to
beast_games_users_YYYY-MM-DD.csv in the current directory; use -o - to
write to stdout.`,
		Args: cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			profiles, err := a.Console.Users(ctx)
			if err != nil {
				return err
			}

			if path == "-" {
				return a.Console.Export(s.out.w, profiles)
			}
			if path == "" {
				path = a.Console.ExportFilename()
			}

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := a.Console.Export(f, profiles); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Exported %d users to %s", len(profiles), path))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&path, "output", "o", "", "Output file, - for stdout")
	return cmd
}

func newUsersResetGameCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-game ID",
		Short: "Clear a user's game selection so they can choose again",
		Args:  cobra.ExactArgs(1),
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			if err := a.Console.ResetGame(ctx, args[0]); err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Cleared game selection for %s", args[0]))
			return nil
		}),
	}
}

func newUsersResetCmd(s *state) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset ID",
		Short: "Revoke all access and clear the selection of a user",
		Args:  cobra.ExactArgs(1),
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			if !yes {
				return errConfirm("reset", args[0])
			}
			if err := a.Console.ResetUser(ctx, args[0]); err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Reset %s", args[0]))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}

func newUsersDeleteCmd(s *state) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			if !yes {
				return errConfirm("delete", args[0])
			}
			if err := a.Console.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Deleted %s", args[0]))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

var ErrNotConfirmed = errors.New("not confirmed")

func errConfirm(op, id string) error {
	return fmt.Errorf("%w: pass --yes to %s %s", ErrNotConfirmed, op, id)
}
