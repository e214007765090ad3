package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/playperu/beastgames/internal/app"
)

func newStatsCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registration and game selection totals",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			overview, err := a.Console.Overview(ctx)
			if err != nil {
				return err
			}
			s.out.Print(statsView{
				GameStats:     overview.Stats,
				WithAccess:    overview.WithAccess,
				WithoutAccess: overview.WithoutAccess,
			})
			return nil
		}),
	}
}
