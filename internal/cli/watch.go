package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/playperu/beastgames/internal/app"
	"github.com/playperu/beastgames/internal/tui"
)

func newWatchCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of users, access and selections",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *app.App, args []string) error {
			return tui.Run(ctx, a.Console, tea.WithAltScreen())
		}),
	}
}
