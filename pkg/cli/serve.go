package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/cli/config"
	controller "github.com/m-mizutani/voidmod/pkg/controller/http"
	"github.com/m-mizutani/voidmod/pkg/infra/events"
	"github.com/m-mizutani/voidmod/pkg/usecase"
	"github.com/m-mizutani/voidmod/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		pipeline  pipelineConfig
	)

	flags := append(serverCfg.Flags(), pipeline.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server for a UI frontend",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting voidmod server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("catalog", pipeline.catalog),
			)

			tracker := events.NewTracker(events.WithRetention(serverCfg.RunRetention))
			installUC, err := pipeline.newInstall(ctx, events.Multi{events.Logger{}, tracker})
			if err != nil {
				return err
			}
			searchUC := usecase.NewSearch(pipeline.catalog.Build())

			var runner async.Runner
			server, err := controller.NewServer(
				ctx,
				installUC,
				searchUC,
				tracker,
				&runner,
				controller.WithAddr(serverCfg.Addr),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := runner.Wait(shutdownCtx); err != nil {
				logger.Warn("Installs still running at shutdown", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
