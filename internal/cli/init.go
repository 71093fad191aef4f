// Package cli holds the bootstrap steps shared by the spendwise binaries.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/config"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

// Bootstrap loads .env, reads and validates the configuration and installs
// the process logger for component. Logs go to logOut, or stdout when nil.
func Bootstrap(component string, logOut io.Writer) (*config.Config, *log.Logger, error) {
	config.LoadEnvFile()
	cfg := config.Load()
	logger := log.Setup(cfg.LogLevel, component, logOut)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		return nil, logger, err
	}
	return cfg, logger, nil
}

// InitBackend opens the store selected by DATA_BACKEND.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.Result, error) {
	settings, err := backend.SettingsFrom(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewOpener(logger.Logger).Open(ctx, settings)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend",
			log.FieldBackend, settings.Kind.String(),
			log.FieldError, err)
		return nil, err
	}
	return result, nil
}

// InitAMQP connects to the broker when AMQP_URL is set. A connection
// failure is logged and the process continues without events.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, created records will not be mirrored")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	logger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

// Publisher adapts a possibly nil client to the services port, keeping a
// nil client a nil interface.
func Publisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// MustOK exits the process after logging err. For use in main only.
func MustOK(logger *log.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logger.Error(msg, log.FieldError, err)
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled after cleanup has run; done closes
// once shutdown completed or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()
		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
