package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentReminder, nil)
	cli.MustOK(logger, "Startup failed", err)
	if cfg.AMQPURL == "" {
		cli.MustOK(logger, "Configuration validation failed", errors.New("AMQP_URL is required for the reminder worker"))
	}

	logger.Info("Starting reminder-worker")

	store, err := cli.InitBackend(context.Background(), logger, cfg)
	cli.MustOK(logger, "Failed to initialize backend", err)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	cli.MustOK(logger, "Failed to initialize AMQP client", err)

	m, err := metrics.New(nil)
	cli.MustOK(logger, "Failed to register metrics", err)

	processor := services.NewReminderProcessor(store.Store, amqpClient, core.SystemClock{},
		services.ReminderProcessorConfig{Interval: cfg.ReminderInterval}).
		WithMetrics(m)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Reminder processor stop failed", log.FieldError, err)
		}
		_ = metricsSrv.Shutdown(ctx)
		_ = amqpClient.Close()
		if err := store.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", log.FieldError, err, "port", cfg.Port)
		}
	}()

	logger.Info("Reminder processor configured",
		"interval", cfg.ReminderInterval,
		log.FieldBackend, cfg.DataBackend)
	cli.MustOK(logger, "Failed to start reminder processor", processor.Start(context.Background()))

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder-worker shutdown complete")
}
