package helper

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinsuchenak/routekeeper/internal/config"
	"github.com/martinsuchenak/routekeeper/internal/helper"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/metrics"
	"github.com/paularlott/cli"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "helper",
		Usage:       "Run the privileged helper",
		Description: "Run the root helper that executes route commands for authorized clients. Normally started by the service manager",
		Flags:       config.GetHelperFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load()
			log.Configure("helper", cfg.LogLevel, cfg.LogFormat)

			if os.Geteuid() != 0 {
				log.Warn("Helper is not running as root; route changes will fail")
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			collector, err := metrics.NewCollector(prometheus.NewRegistry())
			if err != nil {
				return err
			}

			auth := helper.NewAuthorizer(ctx, helper.NewIdentityResolver(), cfg.AllowedTeamIDs, collector)

			l, err := helper.Listen(cfg.HelperSocket)
			if err != nil {
				log.Error("Failed to listen", "socket", cfg.HelperSocket, "error", err)
				return err
			}

			srv := helper.NewServer(helper.NewExecutor(cfg.CommandTimeout), collector, config.Version)
			srv.ServeMetrics(collector.Handler())

			log.Info("Starting helper", "socket", cfg.HelperSocket, "pid", os.Getpid(), "command_timeout", cfg.CommandTimeout, "version", config.Version)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Serve(gctx, helper.NewAuthorizingListener(l, auth))
			})
			g.Go(func() error {
				<-gctx.Done()
				if err := os.Remove(cfg.HelperSocket); err != nil && !os.IsNotExist(err) {
					log.Warn("Failed to remove socket", "socket", cfg.HelperSocket, "error", err)
				}
				return nil
			})

			if err := g.Wait(); err != nil {
				log.Error("Helper error", "error", err)
				return err
			}
			log.Info("Helper stopped")
			return nil
		},
	}
}
