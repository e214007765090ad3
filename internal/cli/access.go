package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playperu/beastgames/internal/app"
	"github.com/playperu/beastgames/internal/beastgames"
)

func newAccessCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Manage per-game access flags",
		Long: `Manage per-game access flags. Games are strength, mind and chance.
Administrator profiles are never changed.`,
	}

	cmd.AddCommand(newAccessToggleCmd(s))
	cmd.AddCommand(newAccessGrantAllCmd(s))
	cmd.AddCommand(newAccessRevokeAllCmd(s))

	return cmd
}

func newAccessToggleCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID GAME",
		Short: "Flip a user's access to one game",
		Args:  cobra.ExactArgs(2),
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			game, err := beastgames.ParseGame(args[1])
			if err != nil {
				return err
			}
			allowed, err := a.Console.ToggleAccess(ctx, args[0], game)
			if err != nil {
				return err
			}
			s.out.Print(accessResult{UserID: args[0], Game: game, Allowed: allowed})
			return nil
		}),
	}
}

func newAccessGrantAllCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-all",
		Short: "Unlock every game for every non-admin user",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			n, err := a.Console.GrantAll(ctx)
			if err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Granted all games to %d users", n))
			return nil
		}),
	}
}

func newAccessRevokeAllCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-all",
		Short: "Lock every game for every non-admin user",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			n, err := a.Console.RevokeAll(ctx)
			if err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Revoked all games from %d users", n))
			return nil
		}),
	}
}
