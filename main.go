package main

import (
	"fmt"
	"os"

	"pkce-relay/internal/config"
	"pkce-relay/internal/server"
	"pkce-relay/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "pkce-relay",
		Short:         "OAuth2 authorization code + PKCE relay for browser clients",
		Version:       version.Info("pkce-relay"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			srv, err := server.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			return srv.Start()
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (optional, environment variables override it)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
