package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"spendwise/internal/auth"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/fallback"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := cli.Bootstrap(log.ComponentHTTP, nil)
			if err != nil {
				return err
			}
			return runServe(cfg, logger)
		},
	}
}

func runServe(cfg *config.Config, logger *log.Logger) error {
	ctx := context.Background()
	clock := core.SystemClock{}

	store, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	amqpClient := cli.InitAMQP(logger, cfg)
	events := cli.Publisher(amqpClient)

	ds, err := fallback.LoadOrDefault(cfg.FallbackDatasetPath)
	if err != nil {
		_ = store.Cleanup()
		return err
	}
	m, err := metrics.New(nil)
	if err != nil {
		_ = store.Cleanup()
		return err
	}

	recurringCache := cache.NewLRUCache[[]core.RecurringExpense](cfg.CacheSize, cfg.CacheTTL, clock)
	cacheManager := cache.NewManager()
	cacheManager.Register(recurringCache)
	if err := m.WatchCache("recurring", func() (uint64, uint64, int) {
		st := recurringCache.Stats()
		return st.Hits, st.Misses, st.Size
	}); err != nil {
		logger.Warn("Cache metrics unavailable", log.FieldError, err)
	}

	rs := services.NewRecurringService(store.Store, events, ds, clock).
		WithCache(recurringCache).
		WithMetrics(m)
	deps := apphttp.Deps{
		Recurring: rs,
		Expenses:  services.NewExpenseService(store.Store, events, ds, clock).WithMetrics(m),
		Dashboard: services.NewDashboardService(rs, store.Store, store.Store, ds).WithMetrics(m),
		Team:      services.NewTeamService(store.Store, ds, clock).WithMetrics(m),
		Verifier:  auth.NewVerifier(cfg.JWTSecret, clock),
		Limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		Metrics:   m,
		Clock:     clock,
		Logger:    logger.WithComponent(log.ComponentHTTP),
	}
	if p, ok := store.Store.(apphttp.Pinger); ok {
		deps.Health = p
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, every caller is served sample data")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	runCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	go cacheManager.Run(runCtx, time.Minute)

	logger.Info("Starting spendwise server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return err
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
