package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/accountplan/internal/app"
	"github.com/mohammad-safakhou/accountplan/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if addr != "" {
				cfg.Server.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.Controller, a.Metrics, logger.Named("http"))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Server.Address) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down", zap.String("addr", cfg.Server.Address))
				return srv.Shutdown(context.Background())
			}
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return serve
}
