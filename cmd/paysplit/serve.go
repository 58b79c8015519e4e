package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/paysplit/internal/chat"
	"github.com/Veraticus/paysplit/internal/cli"
	"github.com/Veraticus/paysplit/internal/config"
	"github.com/Veraticus/paysplit/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the settings service",
		Long: `Run the HTTP service that stores settings, computes one-off budget plans
and answers budgeting questions.

Endpoints:
  GET/POST /settings   settings for ?profile= (default "default")
  POST     /budget     allocate a paycheck by percent and fixed rules
  POST     /ai_chat    ask the budgeting assistant
  GET      /healthz    health check
  GET      /metrics    Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			repo, err := server.OpenRepository(cfg.Server.Database)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			var opts []server.Option
			if ac, ok := cfg.AssistantConfig(); ok {
				assistant, err := chat.NewAssistant(ac)
				if err != nil {
					return fmt.Errorf("failed to configure assistant: %w", err)
				}
				opts = append(opts, server.WithAssistant(assistant))
				slog.Info("Chat assistant enabled", "provider", ac.Provider)
			}

			handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Settings service stopped.")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Listening on "+cfg.Server.Addr))
			return server.New(cfg.HTTPServerConfig(), repo, opts...).Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	cmd.Flags().String("database", "", "settings database path (default from server.database)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.database", cmd.Flags().Lookup("database"))

	return cmd
}
