package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"incident-desk/config"
	"incident-desk/core/appbootstrap"
	"incident-desk/core/utils"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "incident-desk",
		Short:         "Incident Desk - track incidents through a web page and a JSON API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("INCIDENT_DESK_CONFIG"), "YAML config file (environment variables are used when empty)")
	root.SetUsageTemplate(root.UsageTemplate() + "\nEnvironment:\n" + config.HelpUsage() + "\n")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return appbootstrap.Run(ctx, cfg, utils.NewLogger())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := utils.NewLogger()
			version, err := appbootstrap.Migrate(contextOf(cmd), cfg, logger)
			if err != nil {
				return err
			}
			logger.Printf("schema at version %d", version)
			return nil
		},
	})
	return root
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
