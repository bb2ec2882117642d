package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/api"
	"github.com/martinsuchenak/routekeeper/internal/config"
	"github.com/martinsuchenak/routekeeper/internal/helper"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/mcp"
	"github.com/martinsuchenak/routekeeper/internal/metrics"
	"github.com/martinsuchenak/routekeeper/internal/ports"
	"github.com/martinsuchenak/routekeeper/internal/probe"
	"github.com/martinsuchenak/routekeeper/internal/reconciler"
	"github.com/martinsuchenak/routekeeper/internal/routes"
	"github.com/martinsuchenak/routekeeper/internal/service"
	"github.com/martinsuchenak/routekeeper/internal/storage"
	"github.com/paularlott/cli"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the routekeeper agent",
		Description: "Start the unprivileged agent serving the API, MCP and metrics endpoints and refreshing route state",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load()
			log.Configure("agent", cfg.LogLevel, cfg.LogFormat)

			log.Info("Configuration loaded", "data_dir", cfg.DataDir, "listen_addr", cfg.ListenAddr, "strategy", cfg.RouteStrategy)

			strategy, err := reconciler.ParseStrategy(cfg.RouteStrategy)
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()
			log.Info("Storage initialized", "backend", "SQLite", "path", store.Path())

			collector, err := metrics.NewCollector(prometheus.NewRegistry())
			if err != nil {
				return err
			}

			svc := service.NewManager(service.NewRegistry(cfg.HelperLabel, cfg.HelperSocket), cfg.HelperSocket, cfg.CommandTimeout)
			rec := reconciler.New(svc, strategy, collector)
			routeManager := routes.NewManager(store, rec)
			// port listing needs no privileges and runs locally
			discovery := ports.NewDiscovery(helper.NewExecutor(cfg.CommandTimeout), rec)

			apiHandler := api.NewHandler(routeManager, discovery, svc, probe.NewProber(probe.DefaultTimeout))
			mcpServer := mcp.NewServer(routeManager, discovery, cfg.MCPAuthToken, config.Version)

			mux := http.NewServeMux()
			apiHandler.RegisterRoutes(mux)
			mux.HandleFunc("/mcp", mcpServer.GetHTTPHandler())
			mux.Handle("GET /metrics", collector.Handler())

			var handler http.Handler = mux
			if cfg.IsAPIAuthEnabled() {
				handler = api.AuthMiddleware(cfg.APIAuthToken, handler)
			}
			handler = api.RequestGuardMiddleware(handler)
			handler = collector.Middleware(handler)
			handler = api.SecurityHeadersMiddleware(handler)

			server := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("Starting routekeeper agent", "addr", cfg.ListenAddr, "version", config.Version)
			log.Info("API available", "url", cfg.ServerURL()+"/api/")
			log.Info("MCP available", "url", cfg.ServerURL()+"/mcp")
			if cfg.IsMCPEnabled() {
				log.Info("MCP authentication enabled")
			}
			if cfg.IsAPIAuthEnabled() {
				log.Info("API authentication enabled")
			} else {
				log.Warn("API authentication disabled; any local process can manage routes. Set --api-token to restrict it")
			}
			mcpServer.LogStartup()

			if st := svc.Status(ctx); !st.Enabled() {
				log.Warn("Helper not available; route changes will fail until it is installed", "state", st.State)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				if _, err := routeManager.Refresh(gctx); err != nil {
					log.Error("Initial route refresh failed", "error", err)
				}
				return routeManager.RunRefresh(gctx, cfg.RefreshInterval)
			})

			if err := g.Wait(); err != nil {
				log.Error("Server error", "error", err)
				return err
			}

			log.Info("Server stopped")
			return nil
		},
	}
}
