// Package cli implements the listings command line: serve, seed and version.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-listings/internal/app"
	"github.com/tbourn/go-listings/internal/config"
	"github.com/tbourn/go-listings/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X .../cli.Version=...".
var Version = "dev"

type rootOptions struct {
	envFile string
	cfg     config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "listings",
		Short:         "Listings directory web server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(opts.envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())
			opts.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load environment from this file (default: ./.env when present)")

	root.AddCommand(newServeCommand(opts), newSeedCommand(opts), newVersionCommand())
	return root
}

// Execute runs the CLI with SIGINT/SIGTERM cancelling the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadEnv loads path, or ./.env when path is empty and the file exists.
// Variables already set in the environment win.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("env file: %w", err)
	}
	return nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			cfg.Port = sysutil.FirstNonEmpty(port, cfg.Port)

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, Version)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				if err := a.Close(closeCtx); err != nil {
					log.Error().Err(err).Msg("close")
				}
			}()

			log.Info().Str("version", Version).Str("store", cfg.Store.Driver).Msg("starting listings server")
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var (
		reset bool
		file  string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample listings into an empty store",
		Long: "Insert sample listings when the store is empty. With --reset every " +
			"existing listing is deleted first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			ctx := cmd.Context()

			store, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			n, err := app.Seed(ctx, store, sysutil.FirstNonEmpty(file, cfg.Seed.File), reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d listings\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all listings before seeding")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON or YAML seed file (overrides SEED_FILE)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Config is not needed to print the version.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "listings %s\n", Version)
		},
	}
}
