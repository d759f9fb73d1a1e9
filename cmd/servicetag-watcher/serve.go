package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/bcnelson/servicetag-watcher/internal/api"
	"github.com/bcnelson/servicetag-watcher/internal/api/handler"
	"github.com/bcnelson/servicetag-watcher/internal/logging"
	"github.com/bcnelson/servicetag-watcher/internal/metrics"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots, the summary and dashboard files over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.Component(a.logger, "api")

			store, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return a.fail(err)
			}
			defer store.Close()

			prom := metrics.NewPrometheus("")
			if s, err := handler.ReadSummary(a.cfg.Store.DataDir); err == nil {
				prom.ObserveSummary(s)
			} else {
				level.Debug(logger).Log("msg", "no summary to expose as metrics", "err", err)
			}

			server := &http.Server{
				Addr:         a.cfg.Server.Addr(),
				Handler:      api.NewRouter(store, a.cfg.Store.DataDir, prom.Handler(), logger),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				level.Info(logger).Log("msg", "starting server", "addr", "http://"+a.cfg.Server.Addr())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return a.fail(err)
				}
				return nil
			case <-ctx.Done():
			}

			level.Info(logger).Log("msg", "shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return a.fail(err)
			}
			level.Info(logger).Log("msg", "server stopped")
			return nil
		},
	}
}
