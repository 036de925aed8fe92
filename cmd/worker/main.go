package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/rxverify/internal/bootstrap"
	"github.com/kirillkom/rxverify/internal/config"
	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/observability/logging"
	"github.com/kirillkom/rxverify/internal/observability/metrics"
)

const serviceName = "rxverify-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Observer: workerMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSImportSubject)
		return app.Queue.SubscribeImportRequested(groupCtx, func(handlerCtx context.Context, requestID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, cfg.ImportTimeout)
			defer cancel()

			started := time.Now()
			workerMetrics.StartTask(metrics.TaskImport)
			err := app.ImportProcessor.ProcessByID(processCtx, requestID)
			workerMetrics.FinishTask(metrics.TaskImport, time.Since(started), err)
			if err != nil {
				return err
			}
			logger.Info("import_processed", "request_id", requestID, "duration_ms", time.Since(started).Milliseconds())
			return nil
		})
	})
	group.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSSearchEventSubject)
		return app.Queue.SubscribeSearchEvents(groupCtx, func(handlerCtx context.Context, event domain.SearchEvent) error {
			started := time.Now()
			if !event.OccurredAt.IsZero() {
				workerMetrics.ObserveQueueLag(metrics.TaskSearchEvent, started.Sub(event.OccurredAt))
			}
			workerMetrics.StartTask(metrics.TaskSearchEvent)
			err := app.SearchStats.Record(handlerCtx, event)
			workerMetrics.FinishTask(metrics.TaskSearchEvent, time.Since(started), err)
			return err
		})
	})

	if err := group.Wait(); err != nil {
		logger.Error("worker_subscription_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker_metrics_shutdown_failed", "error", err)
	}
}
