package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/villarosa/admin-api/internal/app"
	"github.com/villarosa/admin-api/internal/config"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/security"
)

func main() {
	root := &cobra.Command{
		Use:           "admin-api",
		Short:         "Villa Rosa admin backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newHashSetupKeyCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
			if err != nil {
				return err
			}
			runtime, err := observability.InitRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			runtime.LoggerProvider = loggerProvider

			a, err := app.Build(ctx, cfg, logger, runtime)
			if err != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				_ = runtime.Shutdown(shutdownCtx)
				return err
			}
			return a.Run(ctx)
		},
	}
}

// newHashSetupKeyCommand mints the bcrypt hash that AUTH_SETUP_KEY_HASH
// expects, so the plaintext key never lands in configuration.
func newHashSetupKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-setup-key <key>",
		Short: "Print the bcrypt hash of an admin setup key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := security.HashSetupKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
