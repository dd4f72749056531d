package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/map-version-watcher/internal/config"
	"github.com/JakeFAU/map-version-watcher/internal/server"
	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the surface the subcommands use. Tests inject a fake through newApp.
type App interface {
	Serve(ctx context.Context) error
	Check(ctx context.Context) (watcher.Result, error)
	Close(ctx context.Context) error
}

// newApp loads configuration and builds the application.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return server.Build(ctx, &cfg)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "mapwatch",
		Short: "Watches a web page for map version changes.",
		Long: `mapwatch fetches a page announcing the latest map version once a day,
records every observation, keeps a log of version changes, and notifies
subscribers when the version moves. It also serves a small read-only API.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCheckCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
