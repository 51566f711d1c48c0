package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pkce-relay/internal/config"
	"pkce-relay/internal/logging"
	"pkce-relay/internal/loginclient"
	"pkce-relay/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LOGIN_CLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "login-client",
		Short:         "Sign in through the PKCE relay from a terminal",
		Long:          `login-client asks the relay to start a login, prints the provider URL to open, waits for the provider to redirect back and then shows the signed-in profile.`,
		Version:       version.Info("login-client"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v)
		},
	}

	cmd.Flags().String("relay-url", "http://localhost:8000", "Base URL of the relay")
	cmd.Flags().String("listen", "localhost:5173", "Address receiving the provider redirect; must match the relay redirect URI")
	cmd.Flags().Duration("timeout", 0, "Give up waiting for the redirect after this long (0 waits until interrupted)")
	cmd.Flags().Duration("http-timeout", 0, "Timeout for each request to the relay (0 for none)")
	cmd.Flags().Bool("raw", false, "Print the raw profile document instead of the summary")
	cmd.Flags().String("log-level", "warn", "Log level: debug, info, warn or error")

	cobra.CheckErr(v.BindPFlags(cmd.Flags()))

	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	logger := logging.New(config.LogConfig{Level: v.GetString("log-level"), Format: "text"}, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if timeout := v.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var opts []loginclient.Option
	if httpTimeout := v.GetDuration("http-timeout"); httpTimeout > 0 {
		opts = append(opts, loginclient.WithHTTPTimeout(httpTimeout))
	}

	client, err := loginclient.New(v.GetString("relay-url"), logger, opts...)
	if err != nil {
		return err
	}

	listener, err := loginclient.ListenForRedirect(v.GetString("listen"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			logger.Debug("error closing redirect listener", "error", err)
		}
	}()

	authorizeURL, err := client.Initiate(ctx)
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Open this URL in your browser to sign in:\n\n  %s\n\n", authorizeURL)

	redirect, err := listener.Wait(ctx)
	if err != nil {
		return fmt.Errorf("no redirect received: %w", err)
	}

	state := client.HandleRedirect(ctx, redirect)

	if v.GetBool("raw") && state == loginclient.StateAuthenticated {
		_, raw := client.Profile()
		fmt.Fprintln(out, string(raw))
	} else if err := client.Render(out); err != nil {
		return err
	}

	if state != loginclient.StateAuthenticated {
		return fmt.Errorf("login ended in state %s", state)
	}
	return nil
}
