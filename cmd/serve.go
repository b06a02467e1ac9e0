package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/config"
	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/dataproxy"
	"github.com/sells-group/placemap/internal/monitoring"
	"github.com/sells-group/placemap/internal/orchestrator"
	"github.com/sells-group/placemap/internal/query"
	"github.com/sells-group/placemap/internal/server"
	"github.com/sells-group/placemap/pkg/placesapi"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the map dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env := buildEnv(cfg)
		env.startSweepers(ctx, cfg.Dashboard)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           env.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port), zap.String("my_place_id", cfg.API.MyPlaceID))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// serveEnv holds the wired components behind the HTTP handler.
type serveEnv struct {
	handler  http.Handler
	cache    *query.Cache
	sessions *dashboard.Sessions
	metrics  *monitoring.Metrics
}

// buildEnv wires the places client, query cache, orchestrator, sessions and
// data proxy into one handler. A missing map token is logged, not fatal:
// /api/config reports it to clients.
func buildEnv(c *config.Config) *serveEnv {
	if err := c.Map.Validate(); err != nil {
		zap.L().Warn("map access token missing; clients will get a configuration error", zap.Error(err))
	}

	metrics := monitoring.NewMetrics()
	cache := query.NewCache(c.API.CacheSize, query.WithMetrics(metrics))

	api := placesapi.NewClient(
		placesapi.WithBaseURL(c.API.BaseURL),
		placesapi.WithTimeout(time.Duration(c.API.TimeoutSecs)*time.Second),
		placesapi.WithRateLimit(c.API.RateLimit),
	)
	orch := orchestrator.New(api, cache, orchestrator.Config{
		MyPlaceID:       c.API.MyPlaceID,
		ViewportLimit:   c.Dashboard.ViewportLimit,
		ZipcodePriority: orchestrator.Priority(c.Dashboard.ZipcodePriority),
	})
	sessions := dashboard.NewSessions(c.API.MyPlaceID, time.Duration(c.Dashboard.SessionIdleMinutes)*time.Minute)
	proxy := dataproxy.New(c.Blobs.URLs(), cache, metrics)

	metrics.GaugeFunc("query", "cache_entries", "Query cache entries.", func() float64 {
		return float64(cache.Stats().Entries)
	})
	metrics.GaugeFunc("dashboard", "sessions", "Live dashboard sessions.", func() float64 {
		return float64(sessions.Len())
	})

	return &serveEnv{
		handler:  server.New(c, orch, sessions, proxy, metrics).Handler(),
		cache:    cache,
		sessions: sessions,
		metrics:  metrics,
	}
}

// startSweepers expires idle sessions and evicts unused cache entries until
// ctx is done.
func (e *serveEnv) startSweepers(ctx context.Context, d config.DashboardConfig) {
	every := time.Duration(d.SweepSecs) * time.Second
	if every <= 0 {
		return
	}

	go e.sessions.Run(ctx, every)
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := e.cache.Sweep(); n > 0 {
					zap.L().Debug("query cache swept", zap.Int("evicted", n))
				}
			}
		}
	}()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
