// Package cli implements beastctl, the operator command line for the
// admin console. It talks to the profile store directly rather than to a
// running server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/playperu/beastgames/internal/app"
	"github.com/playperu/beastgames/internal/config"
)

// Options are the global flags.
type Options struct {
	EnvFile string
	Format  string
	Verbose bool
}

// Opener builds the application services for one command.
type Opener func(ctx context.Context, opts Options) (*app.App, error)

type state struct {
	opts Options
	open Opener
	out  *Output
}

// NewRootCmd creates the root command backed by the configured store.
func NewRootCmd() *cobra.Command {
	return newRootCmd(openFromEnv)
}

func newRootCmd(open Opener) *cobra.Command {
	s := &state{
		opts: Options{EnvFile: ".env", Format: FormatText},
		open: open,
	}

	rootCmd := &cobra.Command{
		Use:   "beastctl",
		Short: "Operator tool for the Beast Games registration console",
		Long: `beastctl runs admin console operations against the Beast Games profile
store: list and export users, reset or delete them, manage game access and
watch registrations live.

Configuration is read from the same environment variables as the server,
optionally loaded from a .env file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch s.opts.Format {
			case FormatText, FormatJSON:
			default:
				return fmt.Errorf("unknown output format %q", s.opts.Format)
			}
			s.out = NewOutput(s.opts.Format, cmd.OutOrStdout())
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&s.opts.EnvFile, "env-file", s.opts.EnvFile, "Environment file to load if present")
	rootCmd.PersistentFlags().StringVar(&s.opts.Format, "format", s.opts.Format, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&s.opts.Verbose, "verbose", "v", s.opts.Verbose, "Log store activity to stderr")

	rootCmd.AddCommand(newUsersCmd(s))
	rootCmd.AddCommand(newAccessCmd(s))
	rootCmd.AddCommand(newStatsCmd(s))
	rootCmd.AddCommand(newWatchCmd(s))

	return rootCmd
}

// withApp opens the services for the duration of one command.
func (s *state) withApp(fn func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := s.open(ctx, s.opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

func openFromEnv(ctx context.Context, opts Options) (*app.App, error) {
	if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", opts.EnvFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = cfg.LogLevel
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return app.Open(ctx, cfg, logger)
}

// Execute runs the root command.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
