package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"icsfix/internal/config"
	"icsfix/internal/fetch"
	appLog "icsfix/internal/log"
	"icsfix/internal/scheduler"
	"icsfix/internal/web"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and republish configured feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appLog.Info("icsfix starting", "version", version)

			conf, err := config.Load(root.configPath)
			if err != nil {
				appLog.Error("failed to load config", err, "config_path", root.configPath)
				return err
			}
			if err := conf.ApplyEnv(); err != nil {
				return err
			}
			// CLI flags override config file and environment.
			if listen != "" {
				conf.Listen = listen
			}
			if root.logLevel == "" {
				appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"timezone", conf.Location().String(),
				"refresh", conf.RefreshCron,
				"cache_dir", conf.CacheDir,
				"jobs", len(conf.Jobs),
			)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := scheduler.NewStore()
			sched := scheduler.New(conf, fetch.NewFetcher(conf.CacheDir), store)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			err = web.NewServer(conf, store).Run(ctx)
			appLog.Info("icsfix exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
