package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/baserate-arb/internal/server"
	"github.com/rickgao/baserate-arb/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noLoop bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler loop and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger.Info("starting baserate", "version", version.Version, "commit", version.Commit, "config", opts.configPath)

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("shutdown error", "error", err)
				}
			}()
			a.checkVenues(ctx)

			hub := server.NewHub(cfg.Server.AllowedOrigins, a.metrics, logger)
			a.scheduler.AddSink(hub)

			metricsPath := ""
			if cfg.Metrics.Enabled {
				metricsPath = cfg.Metrics.Path
			}
			srv := server.New(server.Config{
				Addr:           cfg.Server.Addr,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				MetricsPath:    metricsPath,
				RequestTimeout: cfg.Scheduler.CallTimeout,
			}, a.scheduler, a.ledger, hub, a.metrics, logger)

			g, gctx := errgroup.WithContext(ctx)
			if !noLoop && cfg.Scheduler.Interval > 0 {
				if err := a.scheduler.Start(gctx); err != nil {
					return err
				}
				g.Go(func() error {
					<-gctx.Done()
					stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 30*time.Second)
					defer cancel()
					return a.scheduler.Stop(stopCtx)
				})
			} else {
				logger.Info("scheduler loop disabled, cycles run on demand")
			}
			g.Go(func() error { return srv.Run(gctx) })

			logger.Info("baserate running", "instance_id", cfg.Instance.ID, "addr", cfg.Server.Addr)
			err = g.Wait()
			logger.Info("baserate stopped")
			return err
		},
	}
	cmd.Flags().BoolVar(&noLoop, "no-loop", false, "serve the API without scheduled cycles")
	return cmd
}
